package utils

import (
	"encoding/json"
	"reflect"
	"testing"
)

type keyHolder struct {
	Name string    `json:"name"`
	Key  HexBinary `json:"key"`
}

func TestHexBinarySerialization(t *testing.T) {
	s1 := keyHolder{Name: "identity", Key: HexBinary{0, 1, 2, 3, 0xfe, 0xff}}
	srzs1, err := json.Marshal(s1)
	if nil != err {
		t.Fatalf("failed Marshal, got error %v", err)
	}
	if string(srzs1) != `{"name":"identity","key":"00010203feff"}` {
		t.Errorf("unexpected json %s", srzs1)
	}
	s2 := keyHolder{}
	err = json.Unmarshal(srzs1, &s2)
	if nil != err {
		t.Fatalf("failed Unmarshal, got error %v", err)
	}
	if !reflect.DeepEqual(s1, s2) {
		t.Errorf("failed Unmarshal verif, %+v != %+v", s1, s2)
	}
}

func TestHexBinaryInvalid(t *testing.T) {
	var hb HexBinary
	err := hb.UnmarshalText([]byte("0g"))
	if nil == err {
		t.Error("UnmarshalText accepted invalid hex")
	}
}
