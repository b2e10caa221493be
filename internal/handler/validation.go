package handler

import (
	"reflect"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/user/filmdiary/internal/service"
)

var registerOnce sync.Once

// RegisterValidators 在 gin 的校验引擎上注册自定义规则
//   - halfstar: 0-5 之间、步长 0.5 的评分
func RegisterValidators() error {
	var err error
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		err = v.RegisterValidation("halfstar", halfStar)
	})
	return err
}

func halfStar(fl validator.FieldLevel) bool {
	switch fl.Field().Kind() {
	case reflect.Float32, reflect.Float64:
		return service.ValidRating(fl.Field().Float())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return service.ValidRating(float64(fl.Field().Int()))
	default:
		return false
	}
}
