// Package validate 声明式请求校验
//
// 各资源的请求体约束通过结构体 tag 声明，由同一个校验器统一求值，
// 失败时产出 {field, message} 列表供响应 envelope 使用。
//
// 自定义规则：
//   - mobile:    手机号，10-15 位数字
//   - objectid:  24 位十六进制文档 ID
//   - roleconst: 角色常量，大写字母/数字/下划线
//   - level:     题目难度枚举
//   - hexcolor3: #RGB 或 #RRGGBB 十六进制颜色
package validate

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	mobilePattern    = regexp.MustCompile(`^[0-9]{10,15}$`)
	objectIDPattern  = regexp.MustCompile(`^[0-9a-fA-F]{24}$`)
	roleConstPattern = regexp.MustCompile(`^[A-Z0-9_]+$`)
	hexColorPattern  = regexp.MustCompile(`^#([A-Fa-f0-9]{6}|[A-Fa-f0-9]{3})$`)
)

var v = newValidator()

func newValidator() *validator.Validate {
	val := validator.New(validator.WithRequiredStructEnabled())

	// 错误信息按 json tag 报告字段名
	val.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	must := func(tag string, fn validator.Func) {
		if err := val.RegisterValidation(tag, fn); err != nil {
			panic(err)
		}
	}
	must("mobile", regexRule(mobilePattern))
	must("objectid", regexRule(objectIDPattern))
	must("roleconst", regexRule(roleConstPattern))
	must("hexcolor3", regexRule(hexColorPattern))
	must("level", func(fl validator.FieldLevel) bool {
		switch fl.Field().String() {
		case "Beginner", "Intermediate", "Advanced", "Expert":
			return true
		}
		return false
	})

	return val
}

func regexRule(re *regexp.Regexp) validator.Func {
	return func(fl validator.FieldLevel) bool {
		return re.MatchString(fl.Field().String())
	}
}

// FieldError 单字段校验失败
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Struct 校验请求结构体，返回全部失败项（不在第一个错误处中断）
func Struct(s any) []FieldError {
	err := v.Struct(s)
	if err == nil {
		return nil
	}

	ve, ok := err.(validator.ValidationErrors)
	if !ok {
		return []FieldError{{Field: "", Message: err.Error()}}
	}

	out := make([]FieldError, 0, len(ve))
	for _, fe := range ve {
		out = append(out, FieldError{Field: fe.Field(), Message: message(fe)})
	}
	return out
}

// ObjectID 单值校验：24 位十六进制文档 ID
func ObjectID(id string) bool {
	return objectIDPattern.MatchString(id)
}

// message 将 validator 错误翻译成面向客户端的提示
func message(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at least %s characters long", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s cannot exceed %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s cannot exceed %s", field, fe.Param())
	case "mobile":
		return "please enter a valid mobile number"
	case "objectid":
		return fmt.Sprintf("%s must be a valid document ID", field)
	case "roleconst":
		return "role constant must contain only uppercase letters, numbers, and underscores"
	case "hexcolor3":
		return "color must be a valid hex color code (e.g., #3B82F6)"
	case "level":
		return "please select a valid level"
	case "dive":
		return fmt.Sprintf("%s contains invalid items", field)
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
