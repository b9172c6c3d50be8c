package options

type Order string

const (
	// FileOrder keeps the order records have on disk.
	FileOrder Order = "FILE"
	// RollAsc orders by roll number from the lowest.
	RollAsc Order = "ROLL"
	// MarksDesc orders by marks from the highest.
	MarksDesc Order = "MARKS"
)

type ListOptions struct {
	O     Order
	Limit int
}

func (lo *ListOptions) SetOrder(o Order) *ListOptions {
	lo.O = o
	return lo
}

// SetLimit caps the number of returned records, zero means no limit.
func (lo *ListOptions) SetLimit(n int) *ListOptions {
	lo.Limit = n
	return lo
}

func List() *ListOptions {
	return &ListOptions{O: FileOrder}
}
