package order

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/example/cleanshop/pkg/cart"
	"github.com/shopspring/decimal"
)

const (
	currency       = "ج.م"
	noNotes        = "لا توجد ملاحظات"
	timestampStyle = "2006-01-02 15:04"
	shortIDLength  = 8
)

// Summary is everything the handoff message renders.
type Summary struct {
	StoreName string
	OrderID   string
	Form      Form
	Items     []cart.LineItem
	Total     decimal.Decimal
	PlacedAt  time.Time
}

// FormatMessage renders the plain-text order summary sent to the store.
// Amounts are rounded to whole currency units.
func FormatMessage(s Summary) string {
	var b strings.Builder

	fmt.Fprintf(&b, "🛒 طلب جديد من %s\n", s.StoreName)
	fmt.Fprintf(&b, "🔖 رقم الطلب: #%s\n\n", shortID(s.OrderID))

	b.WriteString("👤 البيانات الشخصية:\n")
	fmt.Fprintf(&b, "الاسم: %s\n", s.Form.CustomerName)
	fmt.Fprintf(&b, "الهاتف: %s\n", s.Form.CustomerPhone)
	fmt.Fprintf(&b, "العنوان: %s\n\n", s.Form.CustomerAddress)

	b.WriteString("📦 تفاصيل الطلب:\n")
	for _, it := range s.Items {
		fmt.Fprintf(&b, "%s - الكمية: %d - السعر: %s %s\n",
			it.Name, it.Quantity, amount(it.Subtotal()), currency)
	}

	fmt.Fprintf(&b, "\n💰 إجمالي الطلب: %s %s\n\n", amount(s.Total), currency)

	notes := s.Form.Notes
	if notes == "" {
		notes = noNotes
	}
	fmt.Fprintf(&b, "📝 ملاحظات: %s\n\n", notes)
	fmt.Fprintf(&b, "🕒 %s", s.PlacedAt.Format(timestampStyle))

	return b.String()
}

// DeepLink builds https://<domain>/<recipient>?text=<message> with the
// message percent-encoded, spaces as %20.
func DeepLink(domain, recipient, message string) string {
	text := strings.ReplaceAll(url.QueryEscape(message), "+", "%20")
	return fmt.Sprintf("https://%s/%s?text=%s", domain, recipient, text)
}

func amount(d decimal.Decimal) string {
	return d.StringFixed(0)
}

func shortID(id string) string {
	id = strings.ReplaceAll(id, "-", "")
	if len(id) > shortIDLength {
		return strings.ToUpper(id[:shortIDLength])
	}
	return strings.ToUpper(id)
}
