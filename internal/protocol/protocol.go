package protocol

import (
	"encoding/json"
	"fmt"
)

// Protocol 标识一个可借贷的闪电贷协议。
// 数值判别值(0/1/2)同时作为缓存键与线上传输值，跨版本保持稳定。
type Protocol int

const (
	Navi    Protocol = 0
	Bucket  Protocol = 1
	Scallop Protocol = 2
)

// All 返回全部协议的固定顺序列表。
// 选路与打平逻辑依赖该顺序，不得依赖 map 的遍历顺序。
func All() []Protocol {
	return []Protocol{Navi, Bucket, Scallop}
}

var protocolNames = map[Protocol]string{
	Navi:    "Navi",
	Bucket:  "Bucket",
	Scallop: "Scallop",
}

// IsValid 判断判别值是否为已知协议。
func (p Protocol) IsValid() bool {
	_, ok := protocolNames[p]
	return ok
}

// String 返回协议名称。
func (p Protocol) String() string {
	if name, ok := protocolNames[p]; ok {
		return name
	}
	return fmt.Sprintf("Protocol(%d)", int(p))
}

// Parse 按名称解析协议。
func Parse(name string) (Protocol, error) {
	for p, n := range protocolNames {
		if n == name {
			return p, nil
		}
	}
	return 0, fmt.Errorf("protocol: 未知协议 %q", name)
}

// MarshalJSON 以稳定的数值判别值序列化。
func (p Protocol) MarshalJSON() ([]byte, error) {
	if !p.IsValid() {
		return nil, fmt.Errorf("protocol: 非法判别值 %d", int(p))
	}
	return json.Marshal(int(p))
}

// UnmarshalJSON 兼容数值判别值与协议名称两种形式。
func (p *Protocol) UnmarshalJSON(data []byte) error {
	var num int
	if err := json.Unmarshal(data, &num); err == nil {
		candidate := Protocol(num)
		if !candidate.IsValid() {
			return fmt.Errorf("protocol: 非法判别值 %d", num)
		}
		*p = candidate
		return nil
	}

	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return fmt.Errorf("protocol: 无法解析协议: %s", string(data))
	}
	parsed, err := Parse(name)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// Data 为单个协议的费率与流动性快照条目。
type Data struct {
	Protocol           Protocol `json:"protocol"`
	FeeBps             uint64   `json:"fee_bps"`
	AvailableLiquidity uint64   `json:"available_liquidity"`
	LastUpdated        int64    `json:"last_updated"`
}

// Snapshot 为某一刷新代次的完整协议数据视图。
// 读取方拿到的是副本，写入方整体替换，二者互不影响。
type Snapshot map[Protocol]Data

// Clone 返回快照副本。
func (s Snapshot) Clone() Snapshot {
	out := make(Snapshot, len(s))
	for p, d := range s {
		out[p] = d
	}
	return out
}
