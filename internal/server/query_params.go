package server

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	invoicedomain "github.com/samatributa/invoicegen/internal/invoice/domain"
)

func parseOptionalInt(value string) (int, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return 0, nil
	}
	return strconv.Atoi(trimmed)
}

func listRequestFromQuery(c *gin.Context) (invoicedomain.ListInvoiceRequest, error) {
	size, err := parseOptionalInt(c.Query("page_size"))
	if err != nil || size < 0 {
		return invoicedomain.ListInvoiceRequest{}, newValidationError("page_size", "invalid_page_size", "page_size must be a positive integer")
	}
	return invoicedomain.ListInvoiceRequest{
		PageToken: strings.TrimSpace(c.Query("page_token")),
		PageSize:  size,
	}, nil
}
