package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"Vid_Community/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var (
	usernameRe   = regexp.MustCompile(`^[\w.@+-]+$`)
	fileHeaderT  = reflect.TypeOf(&multipart.FileHeader{})
	registerOnce sync.Once
	registerErr  error
)

// RegisterValidators 字段名取 json/form tag，并注册 username 规则
func RegisterValidators() error {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			registerErr = errors.New("unexpected validator engine")
			return
		}
		v.RegisterTagNameFunc(fieldName)
		registerErr = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
			return usernameRe.MatchString(fl.Field().String())
		})
	})
	return registerErr
}

func fieldName(f reflect.StructField) string {
	for _, tag := range []string{"json", "form"} {
		name := strings.SplitN(f.Tag.Get(tag), ",", 2)[0]
		if name != "" && name != "-" {
			return name
		}
	}
	return f.Name
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		if fe.Type() == fileHeaderT {
			return "No file was submitted."
		}
		return "This field is required."
	case "max":
		return fmt.Sprintf("Ensure this field has no more than %s characters.", fe.Param())
	case "email":
		return "Enter a valid email address."
	case "username":
		return "Enter a valid username. This value may contain only letters, numbers, and @/./+/-/_ characters."
	}
	return "Invalid value."
}

// bind 按 Content-Type 绑定请求体；失败时已写出 400 或 413
func bind(c *gin.Context, obj any) bool {
	err := c.ShouldBind(obj)
	// 空 JSON 请求体按空对象处理，走字段校验
	if errors.Is(err, io.EOF) {
		err = binding.Validator.ValidateStruct(obj)
	}
	if err == nil {
		return true
	}

	var (
		verrs   validator.ValidationErrors
		typeErr *json.UnmarshalTypeError
		synErr  *json.SyntaxError
		numErr  *strconv.NumError
		maxErr  *http.MaxBytesError
	)
	switch {
	case errors.As(err, &maxErr):
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"detail": "Request body too large."})
	case errors.As(err, &verrs):
		fields := make(map[string][]string, len(verrs))
		for _, fe := range verrs {
			fields[fe.Field()] = append(fields[fe.Field()], fieldMessage(fe))
		}
		c.JSON(http.StatusBadRequest, fields)
	case errors.As(err, &typeErr) && typeErr.Field != "":
		c.JSON(http.StatusBadRequest, gin.H{typeErr.Field: []string{typeMessage(typeErr.Type)}})
	case errors.As(err, &synErr):
		c.JSON(http.StatusBadRequest, gin.H{"detail": "JSON parse error - " + synErr.Error()})
	case errors.As(err, &numErr):
		c.JSON(http.StatusBadRequest, gin.H{"detail": fmt.Sprintf("A valid integer is required, got %q.", numErr.Num)})
	default:
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
	}
	return false
}

func typeMessage(t reflect.Type) string {
	switch t.Kind() {
	case reflect.Int, reflect.Int64, reflect.Uint, reflect.Uint64, reflect.Uint32, reflect.Int32:
		return "A valid integer is required."
	case reflect.String:
		return "Not a valid string."
	}
	return "Invalid value."
}

// writeError service 错误到 HTTP 响应的唯一映射
func writeError(c *gin.Context, err error) {
	var (
		ve *service.ValidationError
		pe *service.PermissionError
	)
	switch {
	case errors.As(err, &ve):
		c.JSON(http.StatusBadRequest, ve.Fields)
	case errors.As(err, &pe):
		c.JSON(http.StatusForbidden, gin.H{"detail": pe.Detail})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"detail": "Not found."})
	case errors.Is(err, service.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "No active account found with the given credentials"})
	case errors.Is(err, service.ErrTokenInvalid):
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "Token is invalid or expired", "code": "token_not_valid"})
	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "A server error occurred."})
	}
}

// parseID 非数字 id 与不存在的记录一样返回 404
func parseID(c *gin.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Not found."})
		return 0, false
	}
	return id, true
}

// absoluteURL 按请求的 scheme/host 拼出完整链接
func absoluteURL(c *gin.Context, path string) string {
	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	if p := c.GetHeader("X-Forwarded-Proto"); p != "" {
		scheme = p
	}
	return fmt.Sprintf("%s://%s%s", scheme, c.Request.Host, path)
}
