package dto

type CreateLinkInput struct {
	TargetURL string `json:"target_url" validate:"required,url"`
}

type CustomLinkInput struct {
	TargetURL string `json:"target_url" validate:"required,url"`
	Name      string `json:"name" validate:"required,alphanum,max=32"`
}

type DecodeInput struct {
	TargetURL string `json:"target_url" validate:"required,url"`
}

type DecodeOutput struct {
	URL string `json:"url"`
}

type LinkInfoOutput struct {
	TargetURL string `json:"target_url"`
	IsActive  bool   `json:"is_active"`
	Clicks    int64  `json:"clicks"`
	URL       string `json:"url"`
	AdminURL  string `json:"admin_url"`
}

type UserLinkOutput struct {
	TargetURL string `json:"target_url"`
	Key       string `json:"key"`
	SecretKey string `json:"secret_key"`
	Clicks    int64  `json:"clicks"`
}

type MetricOutput struct {
	Device string `json:"device"`
	IP     string `json:"ip"`
	Date   string `json:"date"`
}
