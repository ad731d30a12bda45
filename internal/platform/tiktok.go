package platform

type TikTok struct{}

func init() {
	Register(&TikTok{})
}

func (p *TikTok) GetName() string {
	return "tiktok"
}

func (p *TikTok) GetDescription() string {
	return "TikTok upload"
}

func (p *TikTok) GetMaxFileSize() int64 {
	return 287 * mib
}
