package styles

// Tip: To find icons use https://github.com/loichyan/nerdfix

var (
	IconCart   = ""
	IconSearch = ""
	IconBell   = ""
	IconStore  = ""
	IconMail   = ""
	IconWifi   = ""
	IconPlug   = ""
)

// LevelIcon is shown in front of a toast title.
var LevelIcon = map[string]string{
	"info":    "",
	"success": "",
	"warning": "",
	"danger":  "",
}
