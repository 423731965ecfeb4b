package ioc

import (
	"github.com/sony/sonyflake"
)

func InitIDGenerator() *sonyflake.Sonyflake {
	sf, err := sonyflake.New(sonyflake.Settings{})
	if err != nil {
		panic(err)
	}
	return sf
}
