package platform

type WhatsApp struct{}

func init() {
	Register(&WhatsApp{})
}

func (p *WhatsApp) GetName() string {
	return "whatsapp"
}

func (p *WhatsApp) GetDescription() string {
	return "WhatsApp video message"
}

func (p *WhatsApp) GetMaxFileSize() int64 {
	return 16 * mib
}
