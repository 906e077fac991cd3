package telephony

import (
	"errors"
	"fmt"

	plivo "github.com/plivo/plivo-go/v7"
)

// CallRequest describes one outbound call: the provider rings To from
// From, then fetches AnswerURL to learn how to bridge the audio.
type CallRequest struct {
	From      string
	To        string
	AnswerURL string
}

// Dialer places outbound calls through the telephony provider and
// returns the provider's call identifier verbatim.
type Dialer interface {
	Dial(req CallRequest) (string, error)
}

type plivoDialer struct {
	client *plivo.Client
}

// NewPlivoDialer builds a Dialer over the Plivo REST API. Fails when
// the account credentials are absent; the caller treats that as a
// deployment-level configuration problem.
func NewPlivoDialer(authID, authToken string) (Dialer, error) {
	if authID == "" || authToken == "" {
		return nil, errors.New("plivo credentials are not configured")
	}
	client, err := plivo.NewClient(authID, authToken, &plivo.ClientOptions{})
	if err != nil {
		return nil, fmt.Errorf("create plivo client: %w", err)
	}
	return &plivoDialer{client: client}, nil
}

func (d *plivoDialer) Dial(req CallRequest) (string, error) {
	resp, err := d.client.Calls.Create(plivo.CallCreateParams{
		From:         req.From,
		To:           req.To,
		AnswerURL:    req.AnswerURL,
		AnswerMethod: "GET",
	})
	if err != nil {
		return "", fmt.Errorf("create call: %w", err)
	}
	return fmt.Sprintf("%v", resp.RequestUUID), nil
}
