package render

import (
	"strings"

	"golang.org/x/text/language"
)

// Catalog holds every user-visible string produced by the help module.
// Entries containing verbs are used as fmt format strings.
type Catalog struct {
	Tag language.Tag

	Title           string
	Separator       string
	UsageHint       string // %s prefix
	HiddenBanner    string
	GeneralHeading  string
	GroupHeading    string // %s group label
	OtherGroup      string
	AllHeading      string
	NoDescription   string
	Footer          string // %d count
	DetailTitle     string // %s prefix, %s name
	DescriptionLine string // %s
	AliasesLine     string // %s
	UsageLine       string // %s
	PermissionNote  string
	HiddenNote      string
	GroupLine       string // %s
	ListSeparator   string

	ErrRange      string // %d upper bound
	ErrInvalid    string
	ErrNotFound   string // %s name
	ErrNoCommands string
	ErrFailure    string

	HelpDescription string
	HelpUsage       string
}

// English is the default catalog.
var English = &Catalog{
	Tag:             language.English,
	Title:           "Command Help",
	Separator:       strings.Repeat("-", 10),
	UsageHint:       "Use '%shelp <number>' to view command details",
	HiddenBanner:    "(hidden commands are shown)",
	GeneralHeading:  "[General Commands]",
	GroupHeading:    "[%s Commands]",
	OtherGroup:      "Other",
	AllHeading:      "[All Commands]",
	NoDescription:   "no description",
	Footer:          "%d commands available",
	DetailTitle:     "Command: %s%s",
	DescriptionLine: "Description: %s",
	AliasesLine:     "Aliases: %s",
	UsageLine:       "Usage: %s",
	PermissionNote:  "Permission: requires elevated rights",
	HiddenNote:      "Status: hidden command",
	GroupLine:       "Group: %s",
	ListSeparator:   ", ",

	ErrRange:      "Error: number out of range, enter a number between 1 and %d",
	ErrInvalid:    "Error: please enter a valid number",
	ErrNotFound:   "Error: command %q not found",
	ErrNoCommands: "Error: no commands are available",
	ErrFailure:    "Sorry, the help text could not be produced. Please try again later.",

	HelpDescription: "Show help information",
	HelpUsage:       "/help [number] - list commands or show details of the numbered command",
}

// Chinese carries the strings of the original help module.
var Chinese = &Catalog{
	Tag:             language.SimplifiedChinese,
	Title:           "命令帮助",
	Separator:       strings.Repeat("-", 10),
	UsageHint:       "使用 '%shelp <序号>' 查看命令详情",
	HiddenBanner:    "(正在显示隐藏命令)",
	GeneralHeading:  "[通用命令]",
	GroupHeading:    "[%s命令]",
	OtherGroup:      "其他",
	AllHeading:      "[所有命令]",
	NoDescription:   "暂无描述",
	Footer:          "共 %d 个可用命令",
	DetailTitle:     "命令详情: %s%s",
	DescriptionLine: "描述: %s",
	AliasesLine:     "别名: %s",
	UsageLine:       "用法: %s",
	PermissionNote:  "权限: 需要特殊权限",
	HiddenNote:      "状态: 隐藏命令",
	GroupLine:       "分组: %s",
	ListSeparator:   ", ",

	ErrRange:      "错误: 序号超出范围，请输入 1-%d 之间的序号",
	ErrInvalid:    "错误: 请输入有效的序号",
	ErrNotFound:   "错误: 未找到命令 %q",
	ErrNoCommands: "错误: 当前没有可用命令",
	ErrFailure:    "抱歉，生成帮助信息时出错，请稍后再试",

	HelpDescription: "显示帮助信息",
	HelpUsage:       "/help [序号] - 显示命令列表或查看指定序号的命令详情",
}

var (
	catalogs = []*Catalog{English, Chinese}
	matcher  = language.NewMatcher([]language.Tag{English.Tag, Chinese.Tag})
)

// CatalogFor returns the catalog best matching locale (a BCP 47 tag such as
// "en-US" or "zh-Hans"). Unknown or malformed tags yield English.
func CatalogFor(locale string) *Catalog {
	tag, err := language.Parse(strings.TrimSpace(locale))
	if err != nil {
		return English
	}
	_, idx, conf := matcher.Match(tag)
	if conf == language.No {
		return English
	}
	return catalogs[idx]
}
