package identity

// BrowserFamily 浏览器指纹族（操作系统 + 浏览器）
type BrowserFamily string

const (
	ChromeWindows  BrowserFamily = "chrome_windows"
	ChromeMac      BrowserFamily = "chrome_mac"
	EdgeWindows    BrowserFamily = "edge_windows"
	FirefoxWindows BrowserFamily = "firefox_windows"
	SafariMac      BrowserFamily = "safari_mac"
)

type fingerprint struct {
	family     BrowserFamily
	userAgents []string
	platform   string // sec-ch-ua-platform
	chromium   bool
	brands     []string
	viewports  [][2]int
}

// 固定UA池，进程启动后只读
var fingerprints = []fingerprint{
	{
		family: ChromeWindows,
		userAgents: []string{
			"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36",
			"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36",
			"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36",
		},
		platform: `"Windows"`,
		chromium: true,
		brands: []string{
			`"Chromium";v="122", "Not(A:Brand";v="24", "Google Chrome";v="122"`,
			`"Not A(Brand";v="99", "Google Chrome";v="121", "Chromium";v="121"`,
			`"Not_A Brand";v="8", "Chromium";v="120", "Google Chrome";v="120"`,
		},
		viewports: [][2]int{{1920, 1080}, {1366, 768}, {1536, 864}, {1440, 900}},
	},
	{
		family: ChromeMac,
		userAgents: []string{
			"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36",
			"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36",
			"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		},
		platform: `"macOS"`,
		chromium: true,
		brands: []string{
			`"Chromium";v="122", "Not(A:Brand";v="24", "Google Chrome";v="122"`,
			`"Not A(Brand";v="99", "Google Chrome";v="121", "Chromium";v="121"`,
		},
		viewports: [][2]int{{1440, 900}, {1680, 1050}, {2560, 1440}},
	},
	{
		family: EdgeWindows,
		userAgents: []string{
			"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36 Edg/122.0.0.0",
			"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36 Edg/121.0.0.0",
		},
		platform: `"Windows"`,
		chromium: true,
		brands: []string{
			`"Chromium";v="122", "Not(A:Brand";v="24", "Microsoft Edge";v="122"`,
		},
		viewports: [][2]int{{1920, 1080}, {1366, 768}},
	},
	{
		family: FirefoxWindows,
		userAgents: []string{
			"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:122.0) Gecko/20100101 Firefox/122.0",
			"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:121.0) Gecko/20100101 Firefox/121.0",
			"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:120.0) Gecko/20100101 Firefox/120.0",
			"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:119.0) Gecko/20100101 Firefox/119.0",
		},
		viewports: [][2]int{{1920, 1080}, {1366, 768}, {1280, 720}},
	},
	{
		family: SafariMac,
		userAgents: []string{
			"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.3 Safari/605.1.15",
			"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.2 Safari/605.1.15",
			"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Safari/605.1.15",
		},
		viewports: [][2]int{{1440, 900}, {1680, 1050}, {1920, 1080}},
	},
}

var htmlAccepts = []string{
	"text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8",
	"text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8",
	"text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
}

var jsonAccepts = []string{
	"application/json, text/plain, */*",
	"application/json",
	"application/json, text/javascript, */*; q=0.01",
}

var acceptLanguages = map[string]string{
	"en-GB": "en-GB,en;q=0.9",
	"en-US": "en-US,en;q=0.9",
	"en-AU": "en-AU,en;q=0.9,en-GB;q=0.8",
	"en-NZ": "en-NZ,en;q=0.9,en-AU;q=0.8",
	"es-ES": "es-ES,es;q=0.9,en;q=0.8",
	"de-DE": "de-DE,de;q=0.9,en;q=0.8",
	"fr-FR": "fr-FR,fr;q=0.9,en;q=0.8",
	"it-IT": "it-IT,it;q=0.9,en;q=0.8",
}

// LocaleForCountry 国家到默认语言区域
func LocaleForCountry(country string) string {
	switch country {
	case "Spain":
		return "es-ES"
	case "Italy":
		return "it-IT"
	case "Germany":
		return "de-DE"
	case "France":
		return "fr-FR"
	case "Australia":
		return "en-AU"
	case "New Zealand":
		return "en-NZ"
	case "USA", "United States":
		return "en-US"
	default:
		return "en-GB"
	}
}
