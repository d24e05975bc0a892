package version

var (
	AppName        = "Server Warden"
	AppDescription = "Discord moderation and logging bot"
	AppVersion     = "0.4.2"
)
