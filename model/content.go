package model

// SiteSettings 站点设置单例
type SiteSettings struct {
	Title             string `json:"title,omitempty"`
	HeroTagline       string `json:"heroTagline,omitempty"`
	HeroSubtitle      string `json:"heroSubtitle,omitempty"`
	HeroDescription   string `json:"heroDescription,omitempty"`
	HeroDividerText   string `json:"heroDividerText,omitempty"`
	CTAPrimaryLabel   string `json:"ctaPrimaryLabel,omitempty"`
	CTAPrimaryLink    string `json:"ctaPrimaryLink,omitempty"`
	CTASecondaryLabel string `json:"ctaSecondaryLabel,omitempty"`
	RitualsHeading    string `json:"ritualsHeading,omitempty"`
	RitualsSubtext    string `json:"ritualsSubtext,omitempty"`
	FooterQuote       string `json:"footerQuote,omitempty"`
	FooterCopyright   string `json:"footerCopyright,omitempty"`
}

// PageSection 页面正文段落
type PageSection struct {
	Key     string   `json:"_key,omitempty"`
	Heading string   `json:"heading,omitempty"`
	Body    []string `json:"body,omitempty"`
}

// PullQuote 页面引语
type PullQuote struct {
	Key      string `json:"_key,omitempty"`
	Text     string `json:"text"`
	Position int    `json:"position,omitempty"`
}

// PageContent 按 pageId 存储的页面正文
type PageContent struct {
	PageID          string        `json:"pageId"`
	Title           string        `json:"title,omitempty"`
	MetaDescription string        `json:"metaDescription,omitempty"`
	Label           string        `json:"label,omitempty"`
	OpeningQuote    string        `json:"openingQuote,omitempty"`
	Sections        []PageSection `json:"sections,omitempty"`
	PullQuotes      []PullQuote   `json:"pullQuotes,omitempty"`
	ClosingText     string        `json:"closingText,omitempty"`
}
