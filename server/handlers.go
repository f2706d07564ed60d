package server

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"math/big"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/michaelpento.lv/cwflash/contract"
	"github.com/michaelpento.lv/cwflash/flashloan"
	"github.com/michaelpento.lv/cwflash/form"
	"github.com/michaelpento.lv/cwflash/ui"
	"github.com/michaelpento.lv/cwflash/utils/monitor"
	"github.com/michaelpento.lv/cwflash/wallet"
)

type indexData struct {
	ChainName  string
	DenomName  string
	Form       form.View
	Snapshot   contract.Snapshot
	Connected  bool
	Address    string
	HasErrors  bool
	CanExecute bool
	WalletBusy bool
	Toasts     []ui.Toast
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	sess := s.sessions.get(w, r)
	snap := s.snapshot()
	sess.Form.SetTVL(s.store.PeekTVL())
	view := sess.Form.View()
	status := s.wallet.Status()
	connected := status == wallet.Connected

	data := indexData{
		ChainName:  s.cfg.Chain.ChainName,
		DenomName:  s.cfg.Chain.DenomName,
		Form:       view,
		Snapshot:   snap,
		Connected:  connected,
		Address:    s.wallet.Address(),
		HasErrors:  view.AmountError != "" || view.ReceiverError != "",
		CanExecute: sess.Form.CanExecute(connected),
		WalletBusy: status.Busy(),
		Toasts:     sess.Toasts.Drain(),
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.tmpl.ExecuteTemplate(w, "index.html", data); err != nil {
		s.logger.Error("Failed to render dashboard", zap.Error(err))
	}
}

func (s *Server) handleLoanForm(w http.ResponseWriter, r *http.Request) {
	sess := s.sessions.get(w, r)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	sess.Form.SetAmountInput(r.PostForm.Get("amount"))
	sess.Form.SetReceiver(r.PostForm.Get("receiver"))
	sess.Form.SetTVL(s.store.PeekTVL())

	if _, err := s.loans.Submit(r.Context(), sess.Form, s.wallet, sess.Toasts); err != nil {
		s.logger.Debug("Loan submission rejected",
			zap.String("request_id", requestIDFrom(r.Context())),
			zap.Error(err))
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleWalletConnect(w http.ResponseWriter, r *http.Request) {
	sess := s.sessions.get(w, r)
	if err := s.wallet.Connect(r.Context()); err != nil {
		sess.Toasts.Error(err.Error())
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleWalletDisconnect(w http.ResponseWriter, r *http.Request) {
	sess := s.sessions.get(w, r)
	if err := s.wallet.Disconnect(r.Context()); err != nil {
		sess.Toasts.Error(err.Error())
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

type loanRequest struct {
	Amount   *float64 `json:"amount"`
	Receiver string   `json:"receiver"`
}

type loanResponse struct {
	Status        string      `json:"status"`
	Generation    int64       `json:"generation"`
	Error         string      `json:"error,omitempty"`
	AmountError   string      `json:"amount_error,omitempty"`
	ReceiverError string      `json:"receiver_error,omitempty"`
	TxHash        string      `json:"tx_hash,omitempty"`
	Toasts        []ui.Toast  `json:"toasts,omitempty"`
	Result        interface{} `json:"result,omitempty"`
}

func (s *Server) handleLoan(w http.ResponseWriter, r *http.Request) {
	var payload loanRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "invalid json payload", http.StatusBadRequest)
		return
	}

	f := form.New(s.cfg.Chain.AddressPrefix, s.cfg.Chain.DenomExponent)
	amount := math.NaN()
	if payload.Amount != nil {
		amount = *payload.Amount
	}
	f.SetAmount(amount)
	f.SetReceiver(payload.Receiver)
	f.SetTVL(s.loadTVL(r.Context()))

	toasts := ui.NewQueue(s.cfg.Chain.ExplorerTxPrefix, 0)
	res, err := s.loans.Submit(r.Context(), f, s.wallet, toasts)

	resp := loanResponse{Toasts: toasts.Drain()}
	status := http.StatusOK
	switch {
	case err == nil:
		resp.Status = "submitted"
		resp.TxHash = res.TxHash
		resp.Result = res
	case errors.Is(err, flashloan.ErrValidation):
		view := f.View()
		resp.Status = "invalid"
		resp.AmountError = view.AmountError
		resp.ReceiverError = view.ReceiverError
		status = http.StatusUnprocessableEntity
	case errors.Is(err, flashloan.ErrWalletNotConnected), errors.Is(err, flashloan.ErrInProgress):
		resp.Status = "rejected"
		status = http.StatusConflict
	default:
		resp.Status = "failed"
		status = http.StatusBadGateway
	}
	if err != nil {
		resp.Error = err.Error()
	}
	resp.Generation = s.store.Generation().Current()
	writeJSON(w, status, resp)
}

// loadTVL waits briefly for the TVL so API callers are validated against it.
func (s *Server) loadTVL(ctx context.Context) contract.Loadable[*big.Int] {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.RPC.Timeout)
	defer cancel()
	tvl, err := s.store.TVL(ctx)
	if err != nil {
		return contract.Failed[*big.Int](err)
	}
	return contract.Value(tvl)
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.snapshot())
}

type amountResponse struct {
	Address string `json:"address"`
	Denom   string `json:"denom"`
	contract.Amount
}

func (s *Server) handleProvided(w http.ResponseWriter, r *http.Request) {
	s.serveAmount(w, r, s.store.Provided)
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	s.serveAmount(w, r, s.store.NativeBalance)
}

func (s *Server) serveAmount(w http.ResponseWriter, r *http.Request, get func(context.Context, string) (*big.Int, error)) {
	address := r.PathValue("address")
	if !form.IsValidAddress(address, s.cfg.Chain.AddressPrefix) {
		http.Error(w, "invalid address", http.StatusBadRequest)
		return
	}

	amount, err := get(r.Context(), address)
	if err != nil {
		s.logger.Warn("Amount query failed",
			zap.String("address", address),
			zap.String("request_id", requestIDFrom(r.Context())),
			zap.Error(err))
		http.Error(w, "query failed: "+err.Error(), http.StatusBadGateway)
		return
	}

	writeJSON(w, http.StatusOK, amountResponse{
		Address: address,
		Denom:   s.cfg.Chain.DenomName,
		Amount: contract.Amount{
			Raw:     amount.String(),
			Display: ui.FormatMicro(amount, s.cfg.Chain.DenomExponent),
		},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	healthy := true

	rpcInfo := struct {
		Connected bool    `json:"connected"`
		LatencyMs float64 `json:"latency_ms"`
		Error     string  `json:"error,omitempty"`
	}{Connected: true}

	if s.healthFn != nil {
		start := time.Now()
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.healthFn(ctx); err != nil {
			rpcInfo.Connected = false
			rpcInfo.Error = err.Error()
			healthy = false
		} else {
			rpcInfo.LatencyMs = float64(time.Since(start).Microseconds()) / 1000.0
		}
	}

	walletInfo := struct {
		Status string `json:"status"`
		Error  string `json:"error,omitempty"`
	}{Status: s.wallet.Status().String()}
	if err := s.wallet.Error(); err != nil {
		walletInfo.Error = err.Error()
	}

	status := "healthy"
	code := http.StatusOK
	if !healthy {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}

	var runtimeStats *monitor.Stats
	if s.runtime != nil {
		stats := s.runtime.Stats()
		runtimeStats = &stats
	}

	writeJSON(w, code, struct {
		Status     string          `json:"status"`
		RPC        interface{}     `json:"rpc"`
		Wallet     interface{}     `json:"wallet"`
		Generation int64           `json:"generation"`
		WSClients  int             `json:"ws_clients"`
		Loans      flashloan.Stats `json:"loans"`
		Runtime    *monitor.Stats  `json:"runtime,omitempty"`
	}{
		Status:     status,
		RPC:        rpcInfo,
		Wallet:     walletInfo,
		Generation: s.store.Generation().Current(),
		WSClients:  s.hub.Len(),
		Loans:      s.loans.Stats(),
		Runtime:    runtimeStats,
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
