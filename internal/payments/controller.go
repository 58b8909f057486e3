package payments

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/MNhat168/sport-zone-sub003/pkg/logger"
)

type Controller struct {
	reconciler Reconciler
	log        *logger.Logger
}

func NewController(reconciler Reconciler, log *logger.Logger) *Controller {
	return &Controller{reconciler: reconciler, log: log}
}

// HandleVNPayWebhook handles GET /api/v1/payments/webhook/vnpay
//
// VNPay delivers IPN notifications as query parameters and expects an
// RspCode body. The HTTP status is always 200; anything else makes the
// provider retry forever.
func (c *Controller) HandleVNPayWebhook(ctx *gin.Context) {
	payload := queryToMap(ctx)
	signature := payload["vnp_SecureHash"]

	ack, err := c.reconciler.Reconcile(ctx.Request.Context(), "vnpay", payload, signature)
	if err != nil {
		c.log.WithError(err).Warn("vnpay webhook rejected")
	}

	ctx.JSON(http.StatusOK, gin.H{
		"RspCode": ack.Code,
		"Message": ack.Desc,
	})
}

// HandleVNPayReturn handles GET /api/v1/payments/return/vnpay
//
// The customer's browser lands here after checkout. The payload is
// reconciled the same way the webhook is, so whichever channel arrives
// first settles the transaction.
func (c *Controller) HandleVNPayReturn(ctx *gin.Context) {
	payload := queryToMap(ctx)
	signature := payload["vnp_SecureHash"]

	ack, err := c.reconciler.Reconcile(ctx.Request.Context(), "vnpay", payload, signature)
	if err != nil {
		c.log.WithError(err).Warn("vnpay return rejected")
	}
	if ack != AckSuccess {
		ctx.JSON(http.StatusOK, gin.H{"status": "error", "code": ack.Code})
		return
	}

	txn, err := c.reconciler.Poll(ctx.Request.Context(), payload["vnp_TxnRef"])
	if err != nil {
		ctx.JSON(http.StatusOK, gin.H{"status": "unknown"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"order_ref": txn.OrderRef,
		"status":    txn.Status,
	})
}

type payosWebhookRequest struct {
	Code      string                 `json:"code"`
	Desc      string                 `json:"desc"`
	Data      map[string]interface{} `json:"data"`
	Signature string                 `json:"signature"`
}

// HandlePayOSWebhook handles POST /api/v1/payments/webhook/payos
func (c *Controller) HandlePayOSWebhook(ctx *gin.Context) {
	var req payosWebhookRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusOK, gin.H{"code": AckInternalError.Code, "desc": "malformed payload"})
		return
	}

	payload := flattenPayload(req.Data)
	ack, err := c.reconciler.Reconcile(ctx.Request.Context(), "payos", payload, req.Signature)
	if err != nil {
		c.log.WithError(err).Warn("payos webhook rejected")
	}

	ctx.JSON(http.StatusOK, gin.H{
		"code": ack.Code,
		"desc": ack.Desc,
	})
}

// GetPaymentStatus handles GET /api/v1/payments/status/:orderRef
//
// Client-driven poll for the frontend to converge on the final state
// when both server channels are delayed.
func (c *Controller) GetPaymentStatus(ctx *gin.Context) {
	orderRef := ctx.Param("orderRef")
	if orderRef == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Missing order reference"})
		return
	}

	txn, err := c.reconciler.Poll(ctx.Request.Context(), orderRef)
	if err != nil {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "Transaction not found"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message": "Transaction retrieved successfully",
		"data": gin.H{
			"id":             txn.ID,
			"order_ref":      txn.OrderRef,
			"status":         txn.Status,
			"amount":         txn.Amount,
			"method":         txn.Method,
			"failure_reason": txn.FailureReason,
			"processed_at":   txn.ProcessedAt,
		},
	})
}

// GetTransaction handles GET /api/v1/payments/:id
func (c *Controller) GetTransaction(ctx *gin.Context) {
	txnID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid transaction ID"})
		return
	}

	txn, err := c.reconciler.GetTransaction(ctx.Request.Context(), txnID)
	if err != nil {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "Transaction not found"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message": "Transaction retrieved successfully",
		"data":    txn,
	})
}

func queryToMap(ctx *gin.Context) map[string]string {
	payload := make(map[string]string)
	for key, values := range ctx.Request.URL.Query() {
		if len(values) > 0 {
			payload[key] = values[0]
		}
	}
	return payload
}

// flattenPayload renders a decoded JSON object as the flat string map the
// adapters sign over. JSON numbers arrive as float64; integral values must
// not pick up a trailing ".0" or signatures break.
func flattenPayload(data map[string]interface{}) map[string]string {
	payload := make(map[string]string, len(data))
	for key, value := range data {
		switch v := value.(type) {
		case string:
			payload[key] = v
		case float64:
			if v == float64(int64(v)) {
				payload[key] = strconv.FormatInt(int64(v), 10)
			} else {
				payload[key] = strconv.FormatFloat(v, 'f', -1, 64)
			}
		case bool:
			payload[key] = strconv.FormatBool(v)
		case nil:
			payload[key] = ""
		}
	}
	return payload
}
