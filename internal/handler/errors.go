package handler

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/segyhp/loan-settlement/internal/settlement"
	customError "github.com/segyhp/loan-settlement/pkg/errors"
	"github.com/segyhp/loan-settlement/pkg/response"
)

type rejectionDetails struct {
	PaymentType string `json:"payment_type"`
	Threshold   string `json:"threshold"`
	Amount      string `json:"amount"`
}

var statusByCode = map[string]int{
	customError.ErrCodeLoanNotFound:         http.StatusNotFound,
	customError.ErrCodeClientNotFound:       http.StatusNotFound,
	customError.ErrCodeClientAlreadyExists:  http.StatusConflict,
	customError.ErrCodeSettlementInProgress: http.StatusConflict,
	customError.ErrCodeLoanAlreadyPaid:      http.StatusConflict,
	customError.ErrCodeInvalidInput:         http.StatusBadRequest,
	customError.ErrCodeInvalidTaxID:         http.StatusBadRequest,
	customError.ErrCodeInvalidPhone:         http.StatusBadRequest,
	customError.ErrCodePaymentRejected:      http.StatusUnprocessableEntity,
}

// writeError maps a service error onto the response envelope. Unknown and
// technical errors are logged and hidden behind a 500.
func writeError(w http.ResponseWriter, log *zap.Logger, err error) {
	var be *customError.BusinessError
	if !errors.As(err, &be) {
		log.Error("Unhandled error", zap.Error(err))
		response.InternalServerError(w, "Internal server error", nil)
		return
	}

	status, ok := statusByCode[be.Code]
	if !ok {
		log.Error("Request failed", zap.String("code", be.Code), zap.Error(err))
		response.ErrorWithCode(w, http.StatusInternalServerError, be.Code, be.Message, nil)
		return
	}

	var details interface{}
	var rejection *settlement.Rejection
	if errors.As(err, &rejection) {
		details = rejectionDetails{
			PaymentType: string(rejection.Mode),
			Threshold:   rejection.Threshold.StringFixed(2),
			Amount:      rejection.Amount.StringFixed(2),
		}
	}

	response.ErrorWithCode(w, status, be.Code, be.Message, details)
}
