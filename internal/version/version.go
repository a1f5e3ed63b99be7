package version

// Version is the current version of the bot. It is set at build time using
// ldflags:
// -ldflags "-X github.com/atlasquant/matrader/internal/version.Version=1.2.3"
// The default value "dev" indicates a development build.
var Version = "dev"

// GetVersion returns the current version of the bot.
func GetVersion() string {
	return Version
}
