package dashboard

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// EventKind is the closed set of push message kinds the dashboard understands.
type EventKind int

const (
	EventUnknown EventKind = iota
	EventSale
)

func (k EventKind) String() string {
	switch k {
	case EventSale:
		return "sale"
	default:
		return "unknown"
	}
}

// TypeSale is the wire discriminator of a completed transaction.
const TypeSale = "SALE"

// ErrMalformedEvent marks push payloads that cannot be interpreted.
var ErrMalformedEvent = errors.New("dashboard: malformed push event")

// SaleEvent is a completed transaction announced over the push channel.
type SaleEvent struct {
	Message    string              `json:"message" validate:"required"`
	TotalPrice decimal.NullDecimal `json:"total_price"`
}

// Event is a decoded push message. Sale is set only when Kind is EventSale.
type Event struct {
	Kind EventKind
	Type string
	Sale SaleEvent
}

type envelope struct {
	Type string `json:"type"`
}

var eventValidator = validator.New(validator.WithRequiredStructEnabled())

// DecodeEvent parses a raw push payload. Unrecognised discriminators decode to
// EventUnknown without error so newer emitters stay compatible.
func DecodeEvent(raw []byte) (Event, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	if strings.TrimSpace(env.Type) == "" {
		return Event{}, fmt.Errorf("%w: missing type", ErrMalformedEvent)
	}
	if env.Type != TypeSale {
		return Event{Kind: EventUnknown, Type: env.Type}, nil
	}

	var sale SaleEvent
	if err := json.Unmarshal(raw, &sale); err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	sale.Message = strings.TrimSpace(sale.Message)
	if err := eventValidator.Struct(sale); err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	if sale.TotalPrice.Valid && sale.TotalPrice.Decimal.IsNegative() {
		return Event{}, fmt.Errorf("%w: negative total_price", ErrMalformedEvent)
	}
	return Event{Kind: EventSale, Type: env.Type, Sale: sale}, nil
}
