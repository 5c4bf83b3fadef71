package payment

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/flexy-hms/payments-api/internal/common"
	"github.com/flexy-hms/payments-api/internal/gateway"
)

// OrderContext selects which fields of a raw order record map to a charge
// line item. It is a closed enumeration: an unsupported context fails at
// parse time instead of silently falling back.
type OrderContext int

const (
	ContextBilling OrderContext = iota
	ContextWebshop
	ContextCashier
	ContextGuestApp
)

func (c OrderContext) String() string {
	switch c {
	case ContextBilling:
		return "billing"
	case ContextWebshop:
		return "webshop"
	case ContextCashier:
		return "cashier"
	case ContextGuestApp:
		return "guest-app"
	default:
		return "unknown"
	}
}

// ParseOrderContext maps the wire tag onto the enumeration.
func ParseOrderContext(raw string) (OrderContext, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "billing":
		return ContextBilling, nil
	case "webshop":
		return ContextWebshop, nil
	case "cashier":
		return ContextCashier, nil
	case "guest-app", "guestapp":
		return ContextGuestApp, nil
	default:
		return 0, common.NewValidation("UNSUPPORTED_CONTEXT", fmt.Sprintf("unsupported order context %q", raw), nil)
	}
}

type fieldMapping struct {
	nameField   string
	amountField string
}

var contextFields = map[OrderContext]fieldMapping{
	ContextBilling:  {nameField: "productName", amountField: "paidAmount"},
	ContextWebshop:  {nameField: "treatment", amountField: "price"},
	ContextCashier:  {nameField: "name", amountField: "price"},
	ContextGuestApp: {nameField: "name", amountField: "price"},
}

// defaultItemName substitutes for records without a resolvable name field.
const defaultItemName = "Web Shop Order"

// BuildLineItems turns raw order records into normalized charge line items.
// Each record must carry a numeric amount under the context's amount field;
// a single bad record rejects the whole batch, because a transaction with a
// missing amount is not economically meaningful.
func BuildLineItems(records []map[string]any, octx OrderContext) ([]gateway.LineItem, error) {
	mapping, ok := contextFields[octx]
	if !ok {
		return nil, common.NewValidation("UNSUPPORTED_CONTEXT", fmt.Sprintf("unsupported order context %q", octx), nil)
	}

	items := make([]gateway.LineItem, 0, len(records))
	for i, record := range records {
		raw, ok := record[mapping.amountField]
		if !ok {
			return nil, common.NewValidation("AMOUNT_MISSING",
				fmt.Sprintf("record %d: amount field %q is missing", i, mapping.amountField), nil)
		}
		amount, err := toDecimal(raw)
		if err != nil {
			return nil, common.NewValidation("AMOUNT_INVALID",
				fmt.Sprintf("record %d: amount field %q is not numeric", i, mapping.amountField), err)
		}

		name := defaultItemName
		if v, ok := record[mapping.nameField]; ok {
			if s := strings.TrimSpace(fmt.Sprint(v)); s != "" {
				name = s
			}
		}

		items = append(items, gateway.LineItem{
			UniqueID:           uuid.NewString(),
			Name:               name,
			Quantity:           quantityOf(record),
			AmountIncludingTax: amount.StringFixed(2),
			Type:               gateway.LineItemTypeProduct,
		})
	}
	return items, nil
}

func quantityOf(record map[string]any) int {
	raw, ok := record["quantity"]
	if !ok {
		return 1
	}
	d, err := toDecimal(raw)
	if err != nil {
		return 1
	}
	qty := int(d.IntPart())
	if qty <= 0 {
		return 1
	}
	return qty
}

func toDecimal(v any) (decimal.Decimal, error) {
	switch n := v.(type) {
	case float64:
		return decimal.NewFromFloat(n), nil
	case float32:
		return decimal.NewFromFloat32(n), nil
	case int:
		return decimal.NewFromInt(int64(n)), nil
	case int64:
		return decimal.NewFromInt(n), nil
	case decimal.Decimal:
		return n, nil
	default:
		s := strings.TrimSpace(fmt.Sprint(v))
		if s == "" {
			return decimal.Decimal{}, fmt.Errorf("empty value")
		}
		return decimal.NewFromString(s)
	}
}
