package notification

import (
	"bytes"
	"fmt"
	"html/template"
	"strconv"
	"strings"

	model "deals-portal/internal/models"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Variant selects the subject and wording of a bid email
type Variant string

const (
	VariantApproved  Variant = "approved"
	VariantRejected  Variant = "rejected"
	VariantCancelled Variant = "cancelled"
)

type variantCopy struct {
	subject    string
	headline   string
	paragraphs []string
}

func copyFor(v Variant, brand, portal string) (variantCopy, bool) {
	switch v {
	case VariantApproved:
		return variantCopy{
			subject:  fmt.Sprintf("Your %s Bid Has Been Approved!", brand),
			headline: "Congratulations!",
			paragraphs: []string{
				"Your bid was successful and we thank you for your partnership.",
				"Your account representative will be reaching out shortly to coordinate your order.",
			},
		}, true
	case VariantRejected:
		return variantCopy{
			subject:  fmt.Sprintf("Update on Your %s Bid", brand),
			headline: "Bid Status Update",
			paragraphs: []string{
				"We regret to inform you that your bid was not accepted.",
				fmt.Sprintf("Should you wish to resubmit a different offer, please login to %s to revise, or reach out to your account representative to discuss further.", portal),
			},
		}, true
	case VariantCancelled:
		return variantCopy{
			subject:  fmt.Sprintf("Your %s Bid Has Been Cancelled", brand),
			headline: "Bid Cancelled",
			paragraphs: []string{
				"Your bid has been cancelled as requested.",
				fmt.Sprintf("You can place a new bid at any time by visiting %s.", portal),
			},
		}, true
	default:
		return variantCopy{}, false
	}
}

const bidEmailHTML = `<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <div style="padding: 20px; border: 1px solid #eee; border-radius: 8px;">
    <h2 style="color: #000; margin-bottom: 20px;">{{.Headline}}</h2>
    {{range .Paragraphs}}<p>{{.}}</p>
    {{end}}<div style="margin-top: 20px; padding-top: 20px; border-top: 1px solid #eee;">
      <h3 style="margin: 0 0 10px;">Bid Details:</h3>
      <p style="margin: 5px 0;">Product: {{.ProductName}}</p>
      <p style="margin: 5px 0;">Quantity: {{.Quantity}}</p>
      <p style="margin: 5px 0;">Regular Price: ${{.RegularPrice}}</p>
      <p style="margin: 5px 0;">Bid Price: ${{.BidPrice}}</p>
      <p style="margin: 5px 0;">Discount: {{.Discount}}%</p>
      <p style="margin: 5px 0;">Total Value: ${{.TotalValue}}</p>
    </div>
  </div>
  <div style="text-align: center; margin-top: 20px; color: #666; font-size: 12px;">
    &copy; {{.Year}} {{.Brand}}. All rights reserved.
  </div>
</div>
`

var bidEmailTemplate = template.Must(template.New("bid_email").Parse(bidEmailHTML))

type bidEmailData struct {
	Headline     string
	Paragraphs   []string
	ProductName  string
	Quantity     int
	RegularPrice string
	BidPrice     string
	Discount     string
	TotalValue   string
	Brand        string
	Year         int
}

var grouped = message.NewPrinter(language.English)

// FormatAmount renders d with two decimals and thousands separators, e.g. 12,500.00.
// Rounding is done in decimal; only the whole part is grouped by the printer.
func FormatAmount(d decimal.Decimal) string {
	fixed := d.StringFixed(2)
	sign := ""
	if strings.HasPrefix(fixed, "-") {
		sign, fixed = "-", fixed[1:]
	}
	whole, frac, _ := strings.Cut(fixed, ".")
	n, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return sign + fixed
	}
	return sign + grouped.Sprintf("%d", n) + "." + frac
}

// FormatPercent renders d with one decimal, e.g. 15.0
func FormatPercent(d decimal.Decimal) string {
	return d.StringFixed(1)
}

func renderBidEmail(c variantCopy, bid model.Bid, brand string, year int) (string, error) {
	data := bidEmailData{
		Headline:     c.headline,
		Paragraphs:   c.paragraphs,
		ProductName:  bid.ProductName,
		Quantity:     bid.Quantity,
		RegularPrice: bid.RegularPrice.StringFixed(2),
		BidPrice:     bid.BidPrice.StringFixed(2),
		Discount:     FormatPercent(bid.DiscountPercent),
		TotalValue:   FormatAmount(bid.TotalValue),
		Brand:        brand,
		Year:         year,
	}

	var buf bytes.Buffer
	if err := bidEmailTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render bid email: %w", err)
	}
	return buf.String(), nil
}
