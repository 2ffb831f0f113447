package rpc

import (
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"lendledger/core/events"
	"lendledger/native/lending"
)

type amountRequest struct {
	Account string `json:"account"`
	Asset   string `json:"asset"`
	Amount  string `json:"amount"`
}

type liquidateRequest struct {
	Liquidator string `json:"liquidator"`
	Account    string `json:"account"`
	Asset      string `json:"asset"`
}

type positionResponse struct {
	CollateralAmount string `json:"collateralAmount"`
	BorrowedAmount   string `json:"borrowedAmount"`
	InterestAccrued  string `json:"interestAccrued"`
	TotalDebt        string `json:"totalDebt"`
	LastAccrualTime  uint64 `json:"lastAccrualTime"`
}

type liquidityResponse struct {
	TotalCollateral string `json:"totalCollateral"`
	TotalBorrowed   string `json:"totalBorrowed"`
}

type liquidationInfoResponse struct {
	Liquidatable         bool   `json:"liquidatable"`
	HealthFactorBps      string `json:"healthFactorBps"`
	TotalDebt            string `json:"totalDebt"`
	CollateralAmount     string `json:"collateralAmount"`
	ProjectedSeize       string `json:"projectedSeize"`
	SecondsToEligibility uint64 `json:"secondsToEligibility"`
}

func (s *Server) decode(req *http.Request, out interface{}) error {
	body := http.MaxBytesReader(nil, req.Body, s.requestLimit)
	defer body.Close()
	decoder := json.NewDecoder(body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(out); err != nil {
		return fmt.Errorf("decode request: %w", err)
	}
	return nil
}

func parseAmount(raw string) (*big.Int, error) {
	amount, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", raw)
	}
	return amount, nil
}

func (s *Server) mutation(w http.ResponseWriter, req *http.Request, op string, fn func(account, asset string, amount *big.Int) error) {
	var body amountRequest
	if err := s.decode(req, &body); err != nil {
		writeBadRequest(w, err)
		return
	}
	amount, err := parseAmount(body.Amount)
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	err = fn(body.Account, body.Asset, amount)
	s.metrics.ObserveOperation(op, err)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) deposit(w http.ResponseWriter, req *http.Request) {
	s.mutation(w, req, "deposit", s.node.Deposit)
}

func (s *Server) withdraw(w http.ResponseWriter, req *http.Request) {
	s.mutation(w, req, "withdraw", s.node.Withdraw)
}

func (s *Server) borrow(w http.ResponseWriter, req *http.Request) {
	s.mutation(w, req, "borrow", s.node.Borrow)
}

func (s *Server) repay(w http.ResponseWriter, req *http.Request) {
	s.mutation(w, req, "repay", s.node.Repay)
}

func (s *Server) liquidate(w http.ResponseWriter, req *http.Request) {
	var body liquidateRequest
	if err := s.decode(req, &body); err != nil {
		writeBadRequest(w, err)
		return
	}
	err := s.node.Liquidate(body.Liquidator, body.Account, body.Asset)
	s.metrics.ObserveOperation("liquidate", err)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) getPosition(w http.ResponseWriter, req *http.Request) {
	account := chi.URLParam(req, "account")
	asset := chi.URLParam(req, "asset")
	position, err := s.node.GetPosition(account, asset)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, positionResponse{
		CollateralAmount: position.CollateralAmount.String(),
		BorrowedAmount:   position.BorrowedAmount.String(),
		InterestAccrued:  position.InterestAccrued.String(),
		TotalDebt:        position.TotalDebt().String(),
		LastAccrualTime:  position.LastAccrualTime,
	})
}

func (s *Server) getLiquidity(w http.ResponseWriter, req *http.Request) {
	liquidity, err := s.node.GetAssetLiquidity(chi.URLParam(req, "asset"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, liquidityResponse{
		TotalCollateral: liquidity.TotalCollateral.String(),
		TotalBorrowed:   liquidity.TotalBorrowed.String(),
	})
}

func (s *Server) getAvailable(w http.ResponseWriter, req *http.Request) {
	available, err := s.node.AvailableToBorrow(chi.URLParam(req, "account"), chi.URLParam(req, "asset"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"available": available.String()})
}

func (s *Server) getLiquidationInfo(w http.ResponseWriter, req *http.Request) {
	info, err := s.node.LiquidationInfo(chi.URLParam(req, "account"), chi.URLParam(req, "asset"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, liquidationInfoResponse{
		Liquidatable:         info.Liquidatable,
		HealthFactorBps:      info.HealthFactorBps.String(),
		TotalDebt:            info.TotalDebt.String(),
		CollateralAmount:     info.CollateralAmount.String(),
		ProjectedSeize:       info.ProjectedSeize.String(),
		SecondsToEligibility: info.SecondsToEligibility,
	})
}

type paramsResponse struct {
	InterestRateBps         uint64 `json:"interestRateBps"`
	CollateralRatioBps      uint64 `json:"collateralRatioBps"`
	LiquidationThresholdBps uint64 `json:"liquidationThresholdBps"`
	LiquidationBonusBps     uint64 `json:"liquidationBonusBps"`
	Paused                  bool   `json:"paused"`
}

func paramsToResponse(params lending.ProtocolParams) paramsResponse {
	return paramsResponse{
		InterestRateBps:         params.InterestRateBps,
		CollateralRatioBps:      params.CollateralRatioBps,
		LiquidationThresholdBps: params.LiquidationThresholdBps,
		LiquidationBonusBps:     params.LiquidationBonusBps,
		Paused:                  params.Paused,
	}
}

func (s *Server) getParams(w http.ResponseWriter, _ *http.Request) {
	params, err := s.node.Params()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, paramsToResponse(params))
}

func (s *Server) getEvents(w http.ResponseWriter, req *http.Request) {
	limit := 100
	if raw := req.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeBadRequest(w, fmt.Errorf("invalid limit %q", raw))
			return
		}
		limit = parsed
	}
	records := s.node.Events().Recent(limit)
	if records == nil {
		records = []events.Record{}
	}
	writeJSON(w, http.StatusOK, records)
}
