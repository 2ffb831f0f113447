package rpc

import (
	"net/http"

	"lendledger/native/lending"
)

type setParamsRequest struct {
	Principal               string `json:"principal"`
	InterestRateBps         uint64 `json:"interestRateBps"`
	CollateralRatioBps      uint64 `json:"collateralRatioBps"`
	LiquidationThresholdBps uint64 `json:"liquidationThresholdBps"`
	LiquidationBonusBps     uint64 `json:"liquidationBonusBps"`
	Paused                  bool   `json:"paused"`
}

func (s *Server) setParams(w http.ResponseWriter, req *http.Request) {
	var body setParamsRequest
	if err := s.decode(req, &body); err != nil {
		writeBadRequest(w, err)
		return
	}
	params := lending.ProtocolParams{
		InterestRateBps:         body.InterestRateBps,
		CollateralRatioBps:      body.CollateralRatioBps,
		LiquidationThresholdBps: body.LiquidationThresholdBps,
		LiquidationBonusBps:     body.LiquidationBonusBps,
		Paused:                  body.Paused,
	}
	if err := s.node.SetParams(body.Principal, params); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, paramsToResponse(params))
}

type setPausedRequest struct {
	Principal string `json:"principal"`
	Paused    bool   `json:"paused"`
}

func (s *Server) setPaused(w http.ResponseWriter, req *http.Request) {
	var body setPausedRequest
	if err := s.decode(req, &body); err != nil {
		writeBadRequest(w, err)
		return
	}
	if err := s.node.SetPaused(body.Principal, body.Paused); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"paused": body.Paused})
}

type addAssetRequest struct {
	Principal string `json:"principal"`
	Asset     string `json:"asset"`
}

func (s *Server) addAsset(w http.ResponseWriter, req *http.Request) {
	var body addAssetRequest
	if err := s.decode(req, &body); err != nil {
		writeBadRequest(w, err)
		return
	}
	if err := s.node.AddSupportedAsset(body.Principal, body.Asset); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"asset": body.Asset})
}

type fundRequest struct {
	Principal string `json:"principal"`
	Account   string `json:"account"`
	Asset     string `json:"asset"`
	Amount    string `json:"amount"`
}

func (s *Server) fundAccount(w http.ResponseWriter, req *http.Request) {
	var body fundRequest
	if err := s.decode(req, &body); err != nil {
		writeBadRequest(w, err)
		return
	}
	amount, err := parseAmount(body.Amount)
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	if err := s.node.FundAccount(body.Principal, body.Account, body.Asset, amount); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
