package model

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// FlexFloat は数値と数値文字列のどちらのJSON表現も受け付ける浮動小数点数。
// バックエンドはDynamoDBの属性をそのまま返すため、同じ項目が数値にも文字列にもなる。
type FlexFloat float64

// UnmarshalJSON はjson.Unmarshalerを実装する。空文字列とnullは0として扱う。
func (f *FlexFloat) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = 0
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s == "" {
			*f = 0
			return nil
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return err
		}
		*f = FlexFloat(v)
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*f = FlexFloat(v)
	return nil
}

// FlexString は文字列と数値のどちらのJSON表現も文字列として受け付ける。
type FlexString string

// UnmarshalJSON はjson.Unmarshalerを実装する。
func (s *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*s = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = FlexString(v)
		return nil
	}
	*s = FlexString(data)
	return nil
}
