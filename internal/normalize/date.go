package normalize

import (
	"regexp"
	"strings"
	"time"
)

var (
	datePrefix  = regexp.MustCompile(`(?i)^(?:date|fecha|datum|data|le|kick[- ]?off|match day)(?:\s*:\s*|\s+)`)
	weekdayWord = regexp.MustCompile(`(?i)(?:^|\s)(?:monday|tuesday|wednesday|thursday|friday|saturday|sunday|mon|tue|tues|wed|thu|thur|thurs|fri|sat|sun|lunes|martes|miércoles|miercoles|jueves|viernes|sábado|sabado|domingo|montag|dienstag|mittwoch|donnerstag|freitag|samstag|sonntag|lundi|mardi|mercredi|jeudi|vendredi|samedi|dimanche|lunedì|martedì|mercoledì|giovedì|venerdì|sabato|domenica)\.?,?(?:\s|$)`)
	ordinalDay  = regexp.MustCompile(`(?i)\b(\d{1,2})(?:(?:st|nd|rd|th|er)\b|º|ª)`)
	timeJoiner  = regexp.MustCompile(`(?i)\s(?:at|um|a las|alle|à|ore)\s`)
	frenchHour  = regexp.MustCompile(`(\d{1,2})h(\d{2})`)
	spanishDe   = regexp.MustCompile(`(?i)\s(?:de|del)\s`)
	meridiem    = regexp.MustCompile(`(?i)\b(\d{1,2})(?:[:.](\d{2}))?\s*([ap])\.?m\b\.?`)
	dashJoiner  = regexp.MustCompile(`\s[-–]\s`)
	zoneSuffix  = regexp.MustCompile(`(?i)\s\(?([a-z]{3,4})\)?$`)
)

// 常见时区缩写 → UTC偏移
var zoneOffsets = map[string]time.Duration{
	"utc": 0, "gmt": 0, "wet": 0,
	"bst": time.Hour, "ist": time.Hour, "cet": time.Hour, "west": time.Hour,
	"cest": 2 * time.Hour, "eet": 2 * time.Hour, "eest": 3 * time.Hour,
	"est": -5 * time.Hour, "edt": -4 * time.Hour, "pst": -8 * time.Hour, "pdt": -7 * time.Hour,
	"awst": 8 * time.Hour, "acst": 9*time.Hour + 30*time.Minute, "aest": 10 * time.Hour, "aedt": 11 * time.Hour,
	"nzst": 12 * time.Hour, "nzdt": 13 * time.Hour,
}

// 本地化月份名 → 英文
var monthNames = map[string]string{
	"enero": "January", "febrero": "February", "marzo": "March", "abril": "April", "mayo": "May", "junio": "June",
	"julio": "July", "agosto": "August", "septiembre": "September", "setiembre": "September", "octubre": "October",
	"noviembre": "November", "diciembre": "December",
	"januar": "January", "jänner": "January", "februar": "February", "märz": "March", "mai": "May", "juni": "June",
	"juli": "July", "oktober": "October", "dezember": "December",
	"janvier": "January", "février": "February", "fevrier": "February", "mars": "March", "avril": "April",
	"juin": "June", "juillet": "July", "août": "August", "aout": "August", "octobre": "October",
	"novembre": "November", "décembre": "December", "decembre": "December",
	"gennaio": "January", "febbraio": "February", "aprile": "April", "maggio": "May", "giugno": "June",
	"luglio": "July", "settembre": "September", "ottobre": "October", "dicembre": "December",
}

var monthWord = regexp.MustCompile(`(?i)\p{L}+`)

var isoLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

var (
	dayFirstDot   = []string{"2.1.2006 15:04", "2.1.2006"}
	dayFirstSlash = []string{"2/1/2006 15:04", "2/1/2006 3:04 PM", "2/1/2006", "2-1-2006"}
	monthFirst    = []string{"1/2/2006 15:04", "1/2/2006 3:04 PM", "1/2/2006"}
)

var namedLayouts = []string{
	"2 January 2006 15:04",
	"2 January 2006 3:04 PM",
	"2 January 2006",
	"2 Jan 2006 15:04",
	"2 Jan 2006 3:04 PM",
	"2 Jan 2006",
	"January 2 2006 15:04",
	"January 2 2006 3:04 PM",
	"January 2 2006",
	"Jan 2 2006 15:04",
	"Jan 2 2006 3:04 PM",
	"Jan 2 2006",
}

// layoutsForLocale 按地区决定显式格式的尝试顺序
func layoutsForLocale(locale string) []string {
	loc := strings.ToLower(locale)
	var explicit []string
	switch {
	case loc == "en-us":
		explicit = append(explicit, monthFirst...)
		explicit = append(explicit, isoLayouts...)
		explicit = append(explicit, dayFirstDot...)
	case strings.HasPrefix(loc, "de"):
		explicit = append(explicit, dayFirstDot...)
		explicit = append(explicit, dayFirstSlash...)
		explicit = append(explicit, isoLayouts...)
		explicit = append(explicit, monthFirst...)
	default:
		explicit = append(explicit, dayFirstDot...)
		explicit = append(explicit, dayFirstSlash...)
		explicit = append(explicit, isoLayouts...)
		explicit = append(explicit, monthFirst...)
	}
	return explicit
}

// ParseDate 解析多语言日期文本，返回UTC时间；所有策略失败返回 nil
func ParseDate(text, locale string) *time.Time {
	raw := strings.TrimSpace(text)
	if raw == "" {
		return nil
	}
	// 结构化格式优先，不做清洗
	for _, layout := range isoLayouts[:2] {
		if t, err := time.Parse(layout, raw); err == nil {
			u := t.UTC()
			return &u
		}
	}

	s, offset := splitZone(cleanDateText(raw))
	for _, layout := range layoutsForLocale(locale) {
		if t, err := time.Parse(layout, s); err == nil {
			return toUTC(t, offset)
		}
	}

	// 自然语言兜底：翻译月份名后尝试英文月份格式
	s = translateMonths(spanishDe.ReplaceAllString(" "+s+" ", " "))
	s = strings.TrimSpace(multiSpace.ReplaceAllString(s, " "))
	for _, layout := range namedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return toUTC(t, offset)
		}
	}
	return nil
}

// splitZone 去掉末尾可识别的时区缩写，返回其偏移
func splitZone(s string) (string, time.Duration) {
	m := zoneSuffix.FindStringSubmatchIndex(s)
	if m == nil {
		return s, 0
	}
	off, ok := zoneOffsets[strings.ToLower(s[m[2]:m[3]])]
	if !ok {
		return s, 0
	}
	return strings.TrimSpace(s[:m[0]]), off
}

func toUTC(t time.Time, offset time.Duration) *time.Time {
	u := t.Add(-offset)
	return &u
}

// normalizeMeridiem 3pm / 4.30pm / 7:45 p.m. → 3:00 PM 形式
func normalizeMeridiem(s string) string {
	return meridiem.ReplaceAllStringFunc(s, func(m string) string {
		p := meridiem.FindStringSubmatch(m)
		minutes := p[2]
		if minutes == "" {
			minutes = "00"
		}
		return p[1] + ":" + minutes + " " + strings.ToUpper(p[3]) + "M"
	})
}

func cleanDateText(s string) string {
	s = datePrefix.ReplaceAllString(s, "")
	s = weekdayWord.ReplaceAllString(s, " ")
	s = ordinalDay.ReplaceAllString(s, "$1")
	s = frenchHour.ReplaceAllString(s, "$1:$2")
	s = normalizeMeridiem(s)
	s = dashJoiner.ReplaceAllString(s, " ")
	s = strings.NewReplacer(",", " ", "|", " ", "·", " ").Replace(s)
	s = timeJoiner.ReplaceAllString(" "+s+" ", " ")
	s = strings.TrimSpace(multiSpace.ReplaceAllString(s, " "))
	return strings.TrimSuffix(strings.TrimSuffix(s, " h"), " Uhr")
}

func translateMonths(s string) string {
	return monthWord.ReplaceAllStringFunc(s, func(w string) string {
		if en, ok := monthNames[strings.ToLower(w)]; ok {
			return en
		}
		return w
	})
}
