package platform

type Twitter struct{}

func init() {
	Register(&Twitter{})
}

func (p *Twitter) GetName() string {
	return "x-twitter"
}

func (p *Twitter) GetDescription() string {
	return "X (Twitter) video"
}

func (p *Twitter) GetMaxFileSize() int64 {
	return 512 * mib
}
