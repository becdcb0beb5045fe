package geohint

import (
	"strings"
	"sync"

	"github.com/lionsoul2014/ip2region/binding/golang/xdb"
)

// IP2Region 基于 ip2region xdb（仅 IPv4），区域串格式为 国家|区域|省份|城市|ISP
// 约束：整库在打开时一次性读入内存；xdb.Searcher 每次查询都会改写内部计数，查询须串行
type IP2Region struct {
	mu sync.Mutex
	v4 *xdb.Searcher
}

func OpenIP2Region(v4Path string) (*IP2Region, error) {
	buf, err := xdb.LoadContentFromFile(v4Path)
	if err != nil {
		return nil, err
	}
	s, err := xdb.NewWithBuffer(xdb.IPv4, buf)
	if err != nil {
		return nil, err
	}
	return &IP2Region{v4: s}, nil
}

func (x *IP2Region) Name() string { return "ip2region" }

func (x *IP2Region) Lookup(ip string) (Hint, bool) {
	x.mu.Lock()
	region, err := x.v4.SearchByStr(strings.TrimSpace(ip))
	x.mu.Unlock()
	if err != nil || region == "" {
		return Hint{}, false
	}
	return parseRegion(region)
}

func (x *IP2Region) Close() error {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.v4.Close()
	return nil
}

// parseRegion 只接受印度尼西亚的记录，取第三段省名
func parseRegion(s string) (Hint, bool) {
	parts := strings.Split(s, "|")
	if len(parts) < 3 {
		return Hint{}, false
	}
	country := safe(parts[0])
	if country != "Indonesia" && country != "印度尼西亚" && country != "ID" {
		return Hint{}, false
	}
	name := safe(parts[2])
	return Hint{Name: name}, name != ""
}

func safe(s string) string {
	if s == "0" || s == "" || strings.EqualFold(s, "unknown") {
		return ""
	}
	return s
}
