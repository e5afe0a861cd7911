package models

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTerminal(t *testing.T) {
	require.True(t, (&Order{Status: OrderStatusDelivered}).Terminal())
	require.True(t, (&Order{Status: OrderStatusCancelled}).Terminal())
	require.False(t, (&Order{Status: OrderStatusShipped}).Terminal())
	require.False(t, (&Order{Status: OrderStatusPending}).Terminal())
}

func TestValidOrderStatus(t *testing.T) {
	for _, s := range []string{
		OrderStatusPending, OrderStatusApproved, OrderStatusProcessing,
		OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled,
	} {
		require.True(t, ValidOrderStatus(s), s)
	}
	require.False(t, ValidOrderStatus("lost"))
	require.False(t, ValidOrderStatus(""))
}

func TestPaymentMethods(t *testing.T) {
	require.True(t, ValidPaymentMethod(PaymentMethodCOD))
	require.True(t, ValidPaymentMethod(PaymentMethodCard))
	require.True(t, ValidPaymentMethod(PaymentMethodUPI))
	require.True(t, ValidPaymentMethod(PaymentMethodWallet))
	require.False(t, ValidPaymentMethod("cheque"))

	require.False(t, GatewayMethod(PaymentMethodCOD))
	require.True(t, GatewayMethod(PaymentMethodUPI))
}
