package relevance

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
)

// Category is a named group of lowercase keyword phrases. A phrase scores
// when it appears both in the query and in a market's title or description.
type Category struct {
	Name     string   `toml:"name"`
	Keywords []string `toml:"keywords"`
}

// Table is the ordered category keyword table used by the scorer.
type Table []Category

// defaultTable is the built-in keyword table. Override or extend it with
// LoadTable.
var defaultTable = Table{
	{Name: "sports", Keywords: []string{
		"nfl", "nba", "mlb", "nhl", "super bowl", "world cup", "premier league",
		"champions league", "la liga", "serie a", "bundesliga", "world series",
		"stanley cup", "playoffs", "championship", "finals", "soccer",
		"football", "basketball", "baseball", "hockey", "tennis", "golf", "ufc",
		"boxing", "formula 1", "olympics", "mvp",
	}},
	{Name: "politics", Keywords: []string{
		"election", "president", "presidential", "trump", "biden", "harris",
		"congress", "senate", "governor", "democrat", "republican", "primary",
		"nominee", "impeach", "supreme court", "prime minister", "parliament",
		"cabinet", "vote", "polls",
	}},
	{Name: "crypto", Keywords: []string{
		"bitcoin", "btc", "ethereum", "crypto", "solana", "dogecoin", "xrp",
		"stablecoin", "blockchain", "altcoin", "memecoin", "coinbase",
		"binance",
	}},
	{Name: "economy", Keywords: []string{
		"fed", "interest rate", "rate cut", "rate hike", "inflation", "cpi",
		"recession", "gdp", "unemployment", "jobs report", "s&p", "nasdaq",
		"dow jones", "stock", "earnings", "ipo", "market cap", "tariff",
		"treasury",
	}},
	{Name: "tech", Keywords: []string{
		"openai", "chatgpt", "gpt-5", "artificial intelligence", "apple",
		"google", "microsoft", "nvidia", "tesla", "spacex", "starship",
		"iphone", "meta",
	}},
	{Name: "entertainment", Keywords: []string{
		"oscar", "oscars", "grammy", "emmy", "golden globe", "box office",
		"movie", "album", "billboard", "netflix", "taylor swift", "eurovision",
		"celebrity", "spotify",
	}},
	{Name: "world", Keywords: []string{
		"war", "ukraine", "russia", "china", "taiwan", "israel", "gaza", "iran",
		"nato", "ceasefire", "sanctions", "invasion", "peace deal",
	}},
	{Name: "science", Keywords: []string{
		"hurricane", "earthquake", "temperature", "climate", "pandemic",
		"nasa", "launch", "weather",
	}},
}

// DefaultTable returns a copy of the built-in keyword table.
func DefaultTable() Table {
	return defaultTable.clone()
}

// tableFile is the on-disk TOML layout:
//
//	[[category]]
//	name = "sports"
//	keywords = ["nfl", "nba"]
type tableFile struct {
	Categories []Category `toml:"category"`
}

// LoadTable reads a keyword table from a TOML file and merges it over the
// defaults. A file category whose name matches a built-in one replaces it;
// other categories are appended in file order. An empty path returns the
// defaults.
func LoadTable(path string) (Table, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultTable(), nil
	}

	var f tableFile
	if _, err := toml.DecodeFile(path, &f); err != nil {
		return nil, fmt.Errorf("relevance: load keyword table %s: %w", path, err)
	}

	return Merge(DefaultTable(), Table(f.Categories)), nil
}

// Merge returns base with overrides applied by category name. Keywords are
// normalized to trimmed lowercase and empty phrases are dropped.
func Merge(base, overrides Table) Table {
	merged := base.clone()
	index := make(map[string]int, len(merged))
	for i, c := range merged {
		index[strings.ToLower(c.Name)] = i
	}

	for _, c := range overrides {
		c = normalizeCategory(c)
		if i, ok := index[strings.ToLower(c.Name)]; ok {
			merged[i] = c
			continue
		}
		index[strings.ToLower(c.Name)] = len(merged)
		merged = append(merged, c)
	}
	return merged
}

func normalizeCategory(c Category) Category {
	out := Category{Name: strings.TrimSpace(c.Name)}
	for _, kw := range c.Keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" {
			out.Keywords = append(out.Keywords, kw)
		}
	}
	return out
}

func (t Table) clone() Table {
	out := make(Table, len(t))
	for i, c := range t {
		out[i] = Category{
			Name:     c.Name,
			Keywords: append([]string(nil), c.Keywords...),
		}
	}
	return out
}
