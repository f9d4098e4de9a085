package types

// Page wraps a paginated listing the way every admin listing endpoint
// returns it.
type Page[T any] struct {
	Items      []T   `json:"items"`
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalPages int   `json:"totalPages"`
}

func NewPage[T any](items []T, total int64, page, limit int) Page[T] {
	totalPages := int(total) / limit
	if int(total)%limit != 0 {
		totalPages++
	}
	return Page[T]{
		Items:      items,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages,
	}
}

type ProjectConfig struct {
	VapidPublicKey string `json:"vapidPublicKey"`
	ProjectName    string `json:"projectName"`
	Domain         string `json:"domain,omitempty"`
}

type Analytics struct {
	Subscriptions struct {
		Total  int64 `json:"total"`
		Active int64 `json:"active"`
	} `json:"subscriptions"`
	Notifications struct {
		Total      int64 `json:"total"`
		Last30Days int64 `json:"last30Days"`
	} `json:"notifications"`
	Stats struct {
		TotalSent      int64 `json:"totalSent"`
		TotalDelivered int64 `json:"totalDelivered"`
		TotalClicked   int64 `json:"totalClicked"`
		TotalFailed    int64 `json:"totalFailed"`
	} `json:"stats"`
}
