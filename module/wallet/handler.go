package wallet

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"

	"RelayProject/logger"
	"RelayProject/module/wallet/model"
	"RelayProject/module/wallet/service"
)

// Store 是 handler 依赖的最小接口，便于单测替换
type Store interface {
	AppendWithdrawal(ctx context.Context, token string, rec model.WithdrawalRecord) error
	CreateAccount(ctx context.Context, userID string) (string, error)
}

type Handler struct {
	store Store
}

func NewHandler(store Store) *Handler {
	return &Handler{store: store}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.POST("/api/withdrawal", h.HandleWithdrawal)
	r.POST("/api/account", h.HandleCreateAccount)
}

type withdrawalReq struct {
	Token         string  `json:"token"`
	PaymentOption string  `json:"paymentoption"`
	PaymentType   string  `json:"paymenttype"`
	Amount        float64 `json:"amount"`
	ID            string  `json:"id"`
}

// HandleWithdrawal 提现入账：token 找账户，流水追加到 withdrawal 数组。
// 与 relay 核心互不依赖，只是同进程的另一个子系统。
func (h *Handler) HandleWithdrawal(c *gin.Context) {
	var req withdrawalReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	rec := model.WithdrawalRecord{
		Amount:        req.Amount,
		PaymentOption: req.PaymentOption,
		PaymentType:   req.PaymentType,
		RecordID:      req.ID,
	}
	err := h.store.AppendWithdrawal(c.Request.Context(), req.Token, rec)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"ok": "Withdrawal added successfully"})
	case errors.Is(err, service.ErrAccountNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
	default:
		logger.Errorf("[Wallet] append withdrawal: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

type createAccountReq struct {
	UserID string `json:"userId"`
}

func (h *Handler) HandleCreateAccount(c *gin.Context) {
	var req createAccountReq
	if err := c.ShouldBindJSON(&req); err != nil || req.UserID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	token, err := h.store.CreateAccount(c.Request.Context(), req.UserID)
	if err != nil {
		logger.Errorf("[Wallet] create account: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token})
}
