package feed

import (
	"encoding/json"
	"fmt"
	"math/big"
	"strings"
)

// CombinedMessage 对应 combined stream 包装。
type CombinedMessage struct {
	Stream string          `json:"stream"`
	Data   json.RawMessage `json:"data"`
}

// PriceUpdate 提取价格推送消息的核心字段。
type PriceUpdate struct {
	Pair      string      `json:"s"`
	Price     json.Number `json:"p"`
	Timestamp int64       `json:"T"`
}

// ParsePriceUpdate 解析 combined stream 的价格消息，
// 返回交易对、1e18 定点价与上游时间戳（epoch 秒）。
func ParsePriceUpdate(raw []byte) (pair string, price *big.Int, updatedAt int64, err error) {
	var msg CombinedMessage
	if err = json.Unmarshal(raw, &msg); err != nil {
		return
	}
	var update PriceUpdate
	if err = json.Unmarshal(msg.Data, &update); err != nil {
		return
	}
	pair = update.Pair
	updatedAt = update.Timestamp
	price, err = ParseFixedPoint(update.Price.String())
	return
}

// ParseFixedPoint 把十进制价格字符串转为 1e18 定点整数。
// 小数位超过 18 位的部分截断；负数与空串视为非法。
func ParseFixedPoint(s string) (*big.Int, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" || strings.HasPrefix(trimmed, "-") {
		return nil, fmt.Errorf("invalid price %q", s)
	}
	intPart := trimmed
	fracPart := ""
	if idx := strings.IndexByte(trimmed, '.'); idx >= 0 {
		intPart, fracPart = trimmed[:idx], trimmed[idx+1:]
	}
	if intPart == "" {
		intPart = "0"
	}
	if len(fracPart) > 18 {
		fracPart = fracPart[:18]
	}
	digits := intPart + fracPart + strings.Repeat("0", 18-len(fracPart))
	out, ok := new(big.Int).SetString(digits, 10)
	if !ok {
		return nil, fmt.Errorf("invalid price %q", s)
	}
	return out, nil
}
