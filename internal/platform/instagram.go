package platform

type Instagram struct{}

func init() {
	Register(&Instagram{})
}

func (p *Instagram) GetName() string {
	return "instagram-reel"
}

func (p *Instagram) GetDescription() string {
	return "Instagram reel"
}

func (p *Instagram) GetMaxFileSize() int64 {
	return 250 * mib
}
