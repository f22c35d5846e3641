package clubstore

import (
	"sort"

	"TicketSync/internal/config"
	"TicketSync/internal/model"
)

// Club 俱乐部官方票务站点
type Club struct {
	Key         string
	Name        string
	ShortName   string // 用于从标题中剥离主队名
	URL         string
	APIEndpoint string
	League      string
	Country     string
	HomeVenue   string
}

var defaultClubs = []Club{
	// Premier League
	{Key: "arsenal", Name: "Arsenal FC", ShortName: "Arsenal", URL: "https://www.arsenal.com/tickets", APIEndpoint: "https://www.arsenal.com/api/tickets", League: "Premier League", Country: "England", HomeVenue: "Emirates Stadium"},
	{Key: "chelsea", Name: "Chelsea FC", ShortName: "Chelsea", URL: "https://www.chelseafc.com/en/tickets", APIEndpoint: "https://www.chelseafc.com/api/tickets", League: "Premier League", Country: "England", HomeVenue: "Stamford Bridge"},
	{Key: "liverpool", Name: "Liverpool FC", ShortName: "Liverpool", URL: "https://www.liverpoolfc.com/tickets", APIEndpoint: "https://www.liverpoolfc.com/api/fixtures-and-tickets", League: "Premier League", Country: "England", HomeVenue: "Anfield"},
	{Key: "manchester_united", Name: "Manchester United", ShortName: "Manchester United", URL: "https://www.manutd.com/en/tickets", APIEndpoint: "https://www.manutd.com/api/tickets", League: "Premier League", Country: "England", HomeVenue: "Old Trafford"},
	{Key: "manchester_city", Name: "Manchester City", ShortName: "Manchester City", URL: "https://www.mancity.com/tickets", APIEndpoint: "https://www.mancity.com/api/tickets", League: "Premier League", Country: "England", HomeVenue: "Etihad Stadium"},
	{Key: "tottenham", Name: "Tottenham Hotspur", ShortName: "Tottenham", URL: "https://www.tottenhamhotspur.com/tickets", APIEndpoint: "https://www.tottenhamhotspur.com/api/tickets", League: "Premier League", Country: "England", HomeVenue: "Tottenham Hotspur Stadium"},
	// La Liga
	{Key: "real_madrid", Name: "Real Madrid", ShortName: "Real Madrid", URL: "https://www.realmadrid.com/entradas", APIEndpoint: "https://www.realmadrid.com/api/entradas", League: "La Liga", Country: "Spain", HomeVenue: "Santiago Bernabéu"},
	{Key: "barcelona", Name: "FC Barcelona", ShortName: "Barcelona", URL: "https://www.fcbarcelona.com/tickets", APIEndpoint: "https://www.fcbarcelona.com/api/tickets", League: "La Liga", Country: "Spain", HomeVenue: "Camp Nou"},
	{Key: "atletico_madrid", Name: "Atlético Madrid", ShortName: "Atlético", URL: "https://www.atleticodemadrid.com/entradas", APIEndpoint: "https://www.atleticodemadrid.com/api/entradas", League: "La Liga", Country: "Spain", HomeVenue: "Cívitas Metropolitano"},
	// Serie A
	{Key: "juventus", Name: "Juventus", ShortName: "Juventus", URL: "https://www.juventus.com/it/biglietti", APIEndpoint: "https://www.juventus.com/api/biglietti", League: "Serie A", Country: "Italy", HomeVenue: "Allianz Stadium"},
	{Key: "ac_milan", Name: "AC Milan", ShortName: "Milan", URL: "https://www.acmilan.com/it/biglietti", APIEndpoint: "https://www.acmilan.com/api/tickets", League: "Serie A", Country: "Italy", HomeVenue: "San Siro"},
	{Key: "inter_milan", Name: "Inter Milan", ShortName: "Inter", URL: "https://www.inter.it/it/biglietti", APIEndpoint: "https://www.inter.it/api/biglietti", League: "Serie A", Country: "Italy", HomeVenue: "San Siro"},
	// Bundesliga
	{Key: "bayern_munich", Name: "Bayern Munich", ShortName: "Bayern", URL: "https://fcbayern.com/tickets", APIEndpoint: "https://fcbayern.com/api/tickets", League: "Bundesliga", Country: "Germany", HomeVenue: "Allianz Arena"},
	{Key: "borussia_dortmund", Name: "Borussia Dortmund", ShortName: "Dortmund", URL: "https://www.bvb.de/tickets", APIEndpoint: "https://www.bvb.de/api/tickets", League: "Bundesliga", Country: "Germany", HomeVenue: "Signal Iduna Park"},
	// Ligue 1
	{Key: "psg", Name: "Paris Saint-Germain", ShortName: "PSG", URL: "https://www.psg.fr/billetterie", APIEndpoint: "https://www.psg.fr/api/billetterie", League: "Ligue 1", Country: "France", HomeVenue: "Parc des Princes"},
}

// Directory 不可变的俱乐部目录
type Directory struct {
	clubs map[string]Club
	keys  []string
}

// NewDirectory 以内置目录为基础，应用配置中的地址覆盖与禁用项
func NewDirectory(overrides map[string]config.ClubConfig) *Directory {
	d := &Directory{clubs: make(map[string]Club, len(defaultClubs))}
	for _, c := range defaultClubs {
		if o, ok := overrides[c.Key]; ok {
			if o.Disabled {
				continue
			}
			if o.URL != "" {
				c.URL = o.URL
			}
			if o.APIEndpoint != "" {
				c.APIEndpoint = o.APIEndpoint
			}
		}
		d.clubs[c.Key] = c
		d.keys = append(d.keys, c.Key)
	}
	return d
}

// Get 按key查找俱乐部
func (d *Directory) Get(key string) (Club, bool) {
	c, ok := d.clubs[key]
	return c, ok
}

// Keys 目录中的全部俱乐部key，保持内置顺序
func (d *Directory) Keys() []string {
	return append([]string(nil), d.keys...)
}

// Sources 按联赛分组排序的来源列表
func (d *Directory) Sources() []model.Source {
	out := make([]model.Source, 0, len(d.keys))
	for _, k := range d.keys {
		c := d.clubs[k]
		out = append(out, model.Source{Key: c.Key, Name: c.Name, Group: c.League, Country: c.Country, URL: c.URL})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Group < out[j].Group })
	return out
}
