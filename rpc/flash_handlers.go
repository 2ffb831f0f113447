package rpc

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"lendledger/native/lending"
)

type flashRequest struct {
	Account     string `json:"account"`
	Asset       string `json:"asset"`
	Amount      string `json:"amount"`
	CallbackURL string `json:"callbackUrl"`
	Data        string `json:"data,omitempty"`
}

// flashCallbackPayload is POSTed to the borrower's callback while the flash
// transaction is open.
type flashCallbackPayload struct {
	Asset  string `json:"asset"`
	Amount string `json:"amount"`
	Fee    string `json:"fee"`
	Data   string `json:"data,omitempty"`
}

// flashCallbackReply names the repayment the borrower commits from their
// ledger balance. The balance check after the callback still decides whether
// the credit settles.
type flashCallbackReply struct {
	Repay string `json:"repay"`
}

// webhookFlashHandler bridges the synchronous flash-credit callback to an
// HTTP endpoint supplied by the borrower.
type webhookFlashHandler struct {
	client *http.Client
	url    string
}

func (h *webhookFlashHandler) OnFlashCredit(credit *lending.FlashCredit) error {
	payload, err := json.Marshal(flashCallbackPayload{
		Asset:  credit.Asset,
		Amount: credit.Amount.String(),
		Fee:    credit.Fee.String(),
		Data:   string(credit.Data),
	})
	if err != nil {
		return fmt.Errorf("encode flash callback: %w", err)
	}
	resp, err := h.client.Post(h.url, "application/json", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("flash callback: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("flash callback: unexpected status %d", resp.StatusCode)
	}
	var reply flashCallbackReply
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		return fmt.Errorf("decode flash callback reply: %w", err)
	}
	repay, err := parseAmount(reply.Repay)
	if err != nil {
		return fmt.Errorf("flash callback reply: %w", err)
	}
	return credit.Repay(repay)
}

func (s *Server) flashBorrow(w http.ResponseWriter, req *http.Request) {
	var body flashRequest
	if err := s.decode(req, &body); err != nil {
		writeBadRequest(w, err)
		return
	}
	amount, err := parseAmount(body.Amount)
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	callback, err := url.Parse(body.CallbackURL)
	if err != nil || callback.Scheme == "" || callback.Host == "" {
		writeBadRequest(w, fmt.Errorf("invalid callback url %q", body.CallbackURL))
		return
	}
	handler := &webhookFlashHandler{client: s.flashClient, url: callback.String()}
	err = s.node.FlashBorrow(body.Account, body.Asset, amount, handler, []byte(body.Data))
	s.metrics.ObserveOperation("flashBorrow", err)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"fee":    lending.FlashFee(amount).String(),
	})
}
