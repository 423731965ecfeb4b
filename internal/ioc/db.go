package ioc

import (
	"github.com/ego-component/egorm"
)

func InitDB() *egorm.Component {
	return egorm.Load("mysql").Build()
}
