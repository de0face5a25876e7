package http

import (
	"errors"
	"math/big"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/gin-gonic/gin"

	"github.com/layer-3/garuda/core"
	"github.com/layer-3/garuda/service"
)

// WalletHandlers contains HTTP handlers for the wallet endpoints.
type WalletHandlers struct {
	wallet *service.WalletService
}

// NewWalletHandlers creates new wallet handlers.
func NewWalletHandlers(wallet *service.WalletService) *WalletHandlers {
	return &WalletHandlers{
		wallet: wallet,
	}
}

// Address returns the custodial account identity.
func (h *WalletHandlers) Address(c *gin.Context) {
	account := h.wallet.Account()
	c.JSON(http.StatusOK, gin.H{
		"address":    account.Address.Hex(),
		"public_key": hexutil.Encode(account.PublicKey),
	})
}

// SignMessage signs a personal message with the custodial account.
func (h *WalletHandlers) SignMessage(c *gin.Context) {
	var req struct {
		Message string `json:"message" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	signature, err := h.wallet.SignMessage(c.Request.Context(), identityToken(c), []byte(req.Message))
	if err != nil {
		abortWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"signature": hexutil.Encode(signature)})
}

// Pay builds a gas-less transfer authorization and relays it.
func (h *WalletHandlers) Pay(c *gin.Context) {
	var req struct {
		Token  string `json:"token" binding:"required"`
		To     string `json:"to" binding:"required"`
		Amount string `json:"amount" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	amount, ok := new(big.Int).SetString(req.Amount, 10)
	if !ok || amount.Sign() <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid amount"})
		return
	}
	if !common.IsHexAddress(req.Token) || !common.IsHexAddress(req.To) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid address"})
		return
	}

	receipt, err := h.wallet.PayWithAuthorization(
		c.Request.Context(),
		identityToken(c),
		common.HexToAddress(req.Token),
		common.HexToAddress(req.To),
		amount,
	)
	if err != nil {
		if receipt != nil {
			c.JSON(http.StatusBadGateway, gin.H{
				"error":    err.Error(),
				"tx_hash":  receipt.TxHash.Hex(),
				"reason":   receipt.Reason,
				"gas_used": receipt.GasUsed,
			})
			return
		}
		abortWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"tx_hash":      receipt.TxHash.Hex(),
		"block_number": receipt.BlockNumber,
		"gas_used":     receipt.GasUsed,
	})
}

// Verify checks a settled transaction against expected payment parameters.
func (h *WalletHandlers) Verify(c *gin.Context) {
	var req struct {
		TxHash            string `json:"tx_hash" binding:"required"`
		ExpectedAmount    string `json:"expected_amount" binding:"required"`
		ExpectedPayer     string `json:"expected_payer" binding:"required"`
		ExpectedRecipient string `json:"expected_recipient"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	amount, ok := new(big.Int).SetString(req.ExpectedAmount, 10)
	if !ok || amount.Sign() <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid expected amount"})
		return
	}
	if !common.IsHexAddress(req.ExpectedPayer) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid expected payer"})
		return
	}

	params := service.VerifyParams{
		TxHash:         common.HexToHash(req.TxHash),
		ExpectedAmount: amount,
		ExpectedPayer:  common.HexToAddress(req.ExpectedPayer),
	}
	if req.ExpectedRecipient != "" {
		if !common.IsHexAddress(req.ExpectedRecipient) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid expected recipient"})
			return
		}
		recipient := common.HexToAddress(req.ExpectedRecipient)
		params.ExpectedRecipient = &recipient
	}

	payment, err := h.wallet.VerifyPayment(c.Request.Context(), params)
	if err != nil {
		status := http.StatusUnprocessableEntity
		if errors.Is(err, core.ErrAlreadyUsed) {
			status = http.StatusConflict
		}
		body := gin.H{"status": "rejected", "error": err.Error()}
		if payment != nil {
			// Decoded details support manual dispute resolution.
			body["decoded_payer"] = payment.From.Hex()
			body["decoded_recipient"] = payment.To.Hex()
			body["decoded_amount"] = payment.Amount.String()
		}
		c.JSON(status, body)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":       string(payment.Status),
		"tx_hash":      payment.TxHash.Hex(),
		"from":         payment.From.Hex(),
		"to":           payment.To.Hex(),
		"amount":       payment.Amount.String(),
		"kind":         string(payment.Kind),
		"block_number": payment.BlockNumber,
	})
}

func abortWithServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, core.ErrInvalidToken),
		errors.Is(err, core.ErrTokenExpired),
		errors.Is(err, core.ErrTokenStale),
		errors.Is(err, core.ErrSessionExpired):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case errors.Is(err, core.ErrNotAuthorized):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, core.ErrInsufficientFunds):
		c.JSON(http.StatusPaymentRequired, gin.H{"error": err.Error()})
	case errors.Is(err, core.ErrSignatureIntegrity):
		// Internal fault; never blamed on caller input.
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal signing fault"})
	default:
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	}
}
