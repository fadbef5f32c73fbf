package gateway

import "github.com/akulikov/tickwatch/internal/domain"

// request is an outbound gateway frame.
type request struct {
	Op         string       `json:"op"` // "subscribe", "unsubscribe", "place_order"
	ReqID      int64        `json:"req_id"`
	Contract   *contractDTO `json:"contract,omitempty"`
	Side       string       `json:"side,omitempty"`
	Quantity   int          `json:"quantity,omitempty"`
	LimitPrice float64      `json:"limit_price,omitempty"`
	TIF        string       `json:"tif,omitempty"`
}

// message is an inbound gateway frame.
type message struct {
	Type    string  `json:"type"` // "tick", "order_status", "error"
	ReqID   int64   `json:"req_id"`
	Kind    string  `json:"kind,omitempty"`
	Price   float64 `json:"price,omitempty"`
	TsNano  int64   `json:"ts,omitempty"`
	Status  string  `json:"status,omitempty"` // "submitted", "rejected"
	OrderID string  `json:"order_id,omitempty"`
	Reason  string  `json:"reason,omitempty"`
	Message string  `json:"message,omitempty"`
}

type contractDTO struct {
	Symbol   string  `json:"symbol"`
	SecType  string  `json:"sec_type,omitempty"`
	Strike   float64 `json:"strike,omitempty"`
	Expiry   string  `json:"expiry,omitempty"`
	Right    string  `json:"right,omitempty"`
	Exchange string  `json:"exchange,omitempty"`
	Currency string  `json:"currency,omitempty"`
}

func contractFromRef(ref domain.InstrumentRef) *contractDTO {
	return &contractDTO{
		Symbol:   ref.Symbol,
		SecType:  ref.SecType,
		Strike:   ref.Strike,
		Expiry:   ref.Expiry,
		Right:    ref.Right,
		Exchange: ref.Exchange,
		Currency: ref.Currency,
	}
}
