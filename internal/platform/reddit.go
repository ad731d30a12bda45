package platform

type Reddit struct{}

func init() {
	Register(&Reddit{})
}

func (p *Reddit) GetName() string {
	return "reddit"
}

func (p *Reddit) GetDescription() string {
	return "Reddit video post"
}

func (p *Reddit) GetMaxFileSize() int64 {
	return 1024 * mib
}
