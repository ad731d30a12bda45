package platform

type Discord struct{}

func init() {
	Register(&Discord{})
}

func (p *Discord) GetName() string {
	return "discord"
}

func (p *Discord) GetDescription() string {
	return "Discord attachment (free tier)"
}

func (p *Discord) GetMaxFileSize() int64 {
	return 10 * mib
}
