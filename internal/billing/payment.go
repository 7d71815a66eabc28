package billing

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/joseph-ayodele/bills-extractor/internal/common"
	"github.com/joseph-ayodele/bills-extractor/internal/entity"
)

// All payment patterns run against upper-cased text.
var (
	reReceiptCode   = regexp.MustCompile(`\bRCPO-[A-Z0-9]+\b`)
	reReceiptNumber = regexp.MustCompile(`\bRCPT[-/:]?[A-Z0-9]+\b`)

	paymentPatterns = []*regexp.Regexp{
		reReceiptCode,
		reReceiptNumber,
		regexp.MustCompile(`\b(UTR|RRN|TXN|TRANSACTION)\b`),
		regexp.MustCompile(`\b(PAYMENT|PAID|RECEIPT)\b`),
		regexp.MustCompile(`\b(CASH|CARD|UPI|NET\s*BANKING)\b`),
	}

	reTxnReference = regexp.MustCompile(`\b(UTR|RRN|TXN)\s*[:#-]?\s*([A-Z0-9]{6,})`)
	rePaymentMode  = regexp.MustCompile(`\b(CASH|CARD|UPI|NET\s*BANKING)\b`)
	reSpaces       = regexp.MustCompile(`\s+`)
)

// IsPayment reports whether text is payment or receipt related. Any match wins.
func IsPayment(text string) bool {
	up := strings.ToUpper(text)
	for _, re := range paymentPatterns {
		if re.MatchString(up) {
			return true
		}
	}
	return false
}

// ExtractReference returns the receipt code, else a KIND-VALUE transaction reference.
func ExtractReference(text string) (string, bool) {
	up := strings.ToUpper(text)
	if m := reReceiptCode.FindString(up); m != "" {
		return m, true
	}
	if m := reTxnReference.FindStringSubmatch(up); m != nil {
		return fmt.Sprintf("%s-%s", m[1], m[2]), true
	}
	return "", false
}

// PaymentMode returns CASH, CARD, UPI or NET BANKING when the text names one.
func PaymentMode(text string) (string, bool) {
	m := rePaymentMode.FindString(strings.ToUpper(text))
	if m == "" {
		return "", false
	}
	return reSpaces.ReplaceAllString(m, " "), true
}

// ContainsReceiptToken reports whether text carries a receipt code or receipt number.
func ContainsReceiptToken(text string) bool {
	up := strings.ToUpper(text)
	return reReceiptCode.MatchString(up) || reReceiptNumber.MatchString(up) || strings.Contains(up, "RCPO-")
}

// CheckPaymentLeak fails when any finalized item description carries a receipt token.
func CheckPaymentLeak(items []entity.LineItem) error {
	for _, it := range items {
		if ContainsReceiptToken(it.Description) {
			return common.NewAppError("PAYMENT_LEAK",
				fmt.Sprintf("item %s on page %d carries a receipt reference: %q", it.ItemID, it.Page, it.Description),
				common.ErrPaymentLeak)
		}
	}
	return nil
}
