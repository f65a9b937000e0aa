package orders

import "fmt"

// Storefront-facing messages. The dashboard renders these verbatim.
// MsgSystemBusy is the generic reply for infrastructure faults; the real
// cause goes to the server log only.
const MsgSystemBusy = "系統忙碌中，請稍後再試"

const (
	msgEmptyCart   = "購物車是空的"
	fmtNotFound    = "找不到商品：%s"
	fmtBadQuantity = "%s 數量必須為正整數"
	fmtSoldOut     = "%s 已售完"
	fmtShortStock  = "%s 庫存不足（剩 %d 件）"
	fmtOrderDone   = "✅ 訂單完成，總金額：%d 元"
	fmtRestocked   = "✅ 已補貨：%s 目前庫存 %d 件"
)

// ValidationError carries the newline-joined, human-readable line problems
// for a rejected cart. Nothing was mutated when it is returned.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string { return joinLines(e.Problems) }

func joinLines(ss []string) string {
	out := ""
	for i, s := range ss {
		if i > 0 {
			out += "\n"
		}
		out += s
	}
	return out
}

func successMessage(total int) string { return fmt.Sprintf(fmtOrderDone, total) }
