package handler

import (
	"errors"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/Heman1223/Placement-Management-System-sub002/internal/model"
	"github.com/Heman1223/Placement-Management-System-sub002/internal/service"
	"github.com/Heman1223/Placement-Management-System-sub002/internal/workflow"
)

// RegisterValidators 在 gin 的校验引擎上注册业务校验标签，并让错误字段名取 json/form 标签
// 路由初始化时调用一次；重复调用会覆盖同名标签
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return errors.New("gin 校验引擎不是 validator/v10")
	}

	v.RegisterTagNameFunc(fieldTagName)

	rules := map[string]validator.Func{
		"batch_year": func(fl validator.FieldLevel) bool {
			return service.ValidBatchYear(int(fl.Field().Int()))
		},
		"cgpa": func(fl validator.FieldLevel) bool {
			return service.ValidCGPA(fl.Field().Float())
		},
		"job_type": func(fl validator.FieldLevel) bool {
			switch fl.Field().String() {
			case model.JobTypeFullTime, model.JobTypeInternship, model.JobTypePartTime, model.JobTypeContract:
				return true
			}
			return false
		},
		"app_status": func(fl validator.FieldLevel) bool {
			return workflow.IsKnown(fl.Field().String())
		},
	}
	for tag, fn := range rules {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return err
		}
	}
	return nil
}

func fieldTagName(fld reflect.StructField) string {
	for _, key := range []string{"json", "form"} {
		name := strings.SplitN(fld.Tag.Get(key), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name != "" {
			return name
		}
	}
	return fld.Name
}
