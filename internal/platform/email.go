package platform

type Email struct{}

func init() {
	Register(&Email{})
}

func (p *Email) GetName() string {
	return "email"
}

func (p *Email) GetDescription() string {
	return "Typical mail attachment limit"
}

func (p *Email) GetMaxFileSize() int64 {
	return 25 * mib
}
