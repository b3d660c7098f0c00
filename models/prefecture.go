package models

import (
	"fmt"
	"strings"
)

// DefaultPrefectureKey is used when no token is given or the token is unknown.
const DefaultPrefectureKey = "tokyo"

// Prefecture is a canonical region record. Records are shared between all of
// the keys that resolve to them and never change after startup.
type Prefecture struct {
	name string
	lat  float64
	lon  float64
}

// Name returns the display name, e.g. 大阪府
func (p *Prefecture) Name() string { return p.name }

// Latitude of the prefectural office
func (p *Prefecture) Latitude() float64 { return p.lat }

// Longitude of the prefectural office
func (p *Prefecture) Longitude() float64 { return p.lon }

func (p *Prefecture) String() string {
	return fmt.Sprintf("%s (%g, %g)", p.name, p.lat, p.lon)
}

type prefectureEntry struct {
	key       string
	suffix    string
	name      string
	shortName string
	kana      string
	lat       float64
	lon       float64
}

// Ordered north to south, following the JIS X 0401 codes.
var prefectureTable = []prefectureEntry{
	{"hokkaido", "", "北海道", "", "ほっかいどう", 43.06417, 141.34694},
	{"aomori", "ken", "青森県", "青森", "あおもり", 40.82444, 140.74},
	{"iwate", "ken", "岩手県", "岩手", "いわて", 39.70361, 141.1525},
	{"miyagi", "ken", "宮城県", "宮城", "みやぎ", 38.26889, 140.87194},
	{"akita", "ken", "秋田県", "秋田", "あきた", 39.71861, 140.1025},
	{"yamagata", "ken", "山形県", "山形", "やまがた", 38.24056, 140.36333},
	{"fukushima", "ken", "福島県", "福島", "ふくしま", 37.75, 140.46778},
	{"ibaraki", "ken", "茨城県", "茨城", "いばらき", 36.34139, 140.44667},
	{"tochigi", "ken", "栃木県", "栃木", "とちぎ", 36.56583, 139.88361},
	{"gunma", "ken", "群馬県", "群馬", "ぐんま", 36.39111, 139.06083},
	{"saitama", "ken", "埼玉県", "埼玉", "さいたま", 35.85694, 139.64889},
	{"chiba", "ken", "千葉県", "千葉", "ちば", 35.60472, 140.12333},
	{"tokyo", "to", "東京都", "東京", "とうきょう", 35.68944, 139.69167},
	{"kanagawa", "ken", "神奈川県", "神奈川", "かながわ", 35.44778, 139.6425},
	{"niigata", "ken", "新潟県", "新潟", "にいがた", 37.90222, 139.02361},
	{"toyama", "ken", "富山県", "富山", "とやま", 36.69528, 137.21139},
	{"ishikawa", "ken", "石川県", "石川", "いしかわ", 36.59444, 136.62556},
	{"fukui", "ken", "福井県", "福井", "ふくい", 36.06528, 136.22194},
	{"yamanashi", "ken", "山梨県", "山梨", "やまなし", 35.66389, 138.56833},
	{"nagano", "ken", "長野県", "長野", "ながの", 36.65139, 138.18111},
	{"gifu", "ken", "岐阜県", "岐阜", "ぎふ", 35.39111, 136.72222},
	{"shizuoka", "ken", "静岡県", "静岡", "しずおか", 34.97694, 138.38306},
	{"aichi", "ken", "愛知県", "愛知", "あいち", 35.18028, 136.90667},
	{"mie", "ken", "三重県", "三重", "みえ", 34.73028, 136.50861},
	{"shiga", "ken", "滋賀県", "滋賀", "しが", 35.00444, 135.86833},
	{"kyoto", "fu", "京都府", "京都", "きょうと", 35.02139, 135.75556},
	{"osaka", "fu", "大阪府", "大阪", "おおさか", 34.68639, 135.52},
	{"hyogo", "ken", "兵庫県", "兵庫", "ひょうご", 34.69139, 135.18306},
	{"nara", "ken", "奈良県", "奈良", "なら", 34.68528, 135.83278},
	{"wakayama", "ken", "和歌山県", "和歌山", "わかやま", 34.22611, 135.1675},
	{"tottori", "ken", "鳥取県", "鳥取", "とっとり", 35.50361, 134.23833},
	{"shimane", "ken", "島根県", "島根", "しまね", 35.47222, 133.05056},
	{"okayama", "ken", "岡山県", "岡山", "おかやま", 34.66167, 133.935},
	{"hiroshima", "ken", "広島県", "広島", "ひろしま", 34.39639, 132.45944},
	{"yamaguchi", "ken", "山口県", "山口", "やまぐち", 34.18583, 131.47139},
	{"tokushima", "ken", "徳島県", "徳島", "とくしま", 34.06583, 134.55944},
	{"kagawa", "ken", "香川県", "香川", "かがわ", 34.34028, 134.04333},
	{"ehime", "ken", "愛媛県", "愛媛", "えひめ", 33.84167, 132.76611},
	{"kochi", "ken", "高知県", "高知", "こうち", 33.55972, 133.53111},
	{"fukuoka", "ken", "福岡県", "福岡", "ふくおか", 33.60639, 130.41806},
	{"saga", "ken", "佐賀県", "佐賀", "さが", 33.24944, 130.29889},
	{"nagasaki", "ken", "長崎県", "長崎", "ながさき", 32.74472, 129.87361},
	{"kumamoto", "ken", "熊本県", "熊本", "くまもと", 32.78972, 130.74167},
	{"oita", "ken", "大分県", "大分", "おおいた", 33.23806, 131.6125},
	{"miyazaki", "ken", "宮崎県", "宮崎", "みやざき", 31.91111, 131.42389},
	{"kagoshima", "ken", "鹿児島県", "鹿児島", "かごしま", 31.56028, 130.55806},
	{"okinawa", "ken", "沖縄県", "沖縄", "おきなわ", 26.2125, 127.68111},
}

// prefectureAliases maps alternate spellings to a canonical key: long-vowel
// romanizations, Kunrei-shiki spellings, and common typos.
var prefectureAliases = map[string]string{
	"hokkaidou": "hokkaido",
	"hokaido":   "hokkaido",
	"hokkiado":  "hokkaido",
	"ibaragi":   "ibaraki",
	"totigi":    "tochigi",
	"gumma":     "gunma",
	"gunnma":    "gunma",
	"siatama":   "saitama",
	"tiba":      "chiba",
	"chbia":     "chiba",
	"tokio":     "tokyo",
	"toukyou":   "tokyo",
	"toukyo":    "tokyo",
	"toyko":     "tokyo",
	"tokoy":     "tokyo",
	"neo tokio": "tokyo",
	"neo tokyo": "tokyo",
	"kangawa":   "kanagawa",
	"knagawa":   "kanagawa",
	"nigata":    "niigata",
	"niigaata":  "niigata",
	"hukui":     "fukui",
	"hukusima":  "fukushima",
	"fukusima":  "fukushima",
	"sizuoka":   "shizuoka",
	"shizouka":  "shizuoka",
	"kyouto":    "kyoto",
	"kyoot":     "kyoto",
	"oosaka":    "osaka",
	"ohsaka":    "osaka",
	"oaska":     "osaka",
	"hyougo":    "hyogo",
	"hyoog":     "hyogo",
	"simane":    "shimane",
	"hirosima":  "hiroshima",
	"hiroshmia": "hiroshima",
	"tokusima":  "tokushima",
	"kouchi":    "kochi",
	"hukuoka":   "fukuoka",
	"fukouka":   "fukuoka",
	"ooita":     "oita",
	"ohita":     "oita",
	"kagosima":  "kagoshima",
	"okianwa":   "okinawa",
}

var (
	prefectures    map[string]*Prefecture
	prefectureKeys []string
)

func init() {
	prefectures, prefectureKeys = buildPrefectureDirectory(prefectureTable, prefectureAliases)
}

// buildPrefectureDirectory panics on a duplicate key or an alias pointing at
// an unknown prefecture; both are programming errors in the tables above.
func buildPrefectureDirectory(table []prefectureEntry, aliases map[string]string) (map[string]*Prefecture, []string) {
	directory := make(map[string]*Prefecture, len(table)*6+len(aliases))
	keys := make([]string, 0, len(table))

	bind := func(key string, p *Prefecture) {
		key = normalizePrefectureToken(key)
		if key == "" {
			return
		}
		if existing, ok := directory[key]; ok {
			panic(fmt.Sprintf("prefecture key %q bound twice (%s, %s)", key, existing.name, p.name))
		}
		directory[key] = p
	}

	for _, entry := range table {
		p := &Prefecture{name: entry.name, lat: entry.lat, lon: entry.lon}
		keys = append(keys, entry.key)
		bind(entry.key, p)
		bind(entry.name, p)
		bind(entry.shortName, p)
		bind(entry.kana, p)
		if entry.suffix != "" {
			bind(entry.key+"-"+entry.suffix, p)
		}
	}

	for alias, key := range aliases {
		p, ok := directory[key]
		if !ok {
			panic(fmt.Sprintf("alias %q points at unknown prefecture %q", alias, key))
		}
		bind(alias, p)
	}

	if _, ok := directory[DefaultPrefectureKey]; !ok {
		panic("default prefecture " + DefaultPrefectureKey + " missing")
	}

	return directory, keys
}

func normalizePrefectureToken(token string) string {
	return strings.ToLower(strings.TrimSpace(token))
}

// LookupPrefecture returns the prefecture bound to token and whether it was found.
func LookupPrefecture(token string) (*Prefecture, bool) {
	p, ok := prefectures[normalizePrefectureToken(token)]
	return p, ok
}

// ResolvePrefecture never fails: unknown tokens resolve to the default prefecture.
func ResolvePrefecture(token string) *Prefecture {
	if p, ok := LookupPrefecture(token); ok {
		return p
	}
	return prefectures[DefaultPrefectureKey]
}

// PrefectureKeys returns the canonical romaji keys, north to south.
func PrefectureKeys() []string {
	keys := make([]string, len(prefectureKeys))
	copy(keys, prefectureKeys)
	return keys
}
