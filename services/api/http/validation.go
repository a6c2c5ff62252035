package http

import (
	"errors"
	"net/url"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/02loveslollipop/snow-cannon-viewer/services/internal/cannon"
)

var (
	unsignedPattern = regexp.MustCompile(`^\d+$`)
	decimalPattern  = regexp.MustCompile(`^\d+(\.\d+)?$`)

	registerOnce sync.Once
)

// registerValidators adds the query-string tags used below to gin's
// validator and reports field names by their form/uri tag.
func registerValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(paramName)
		if err := v.RegisterValidation("unsigned", matches(unsignedPattern)); err != nil {
			panic(err)
		}
		if err := v.RegisterValidation("decimal", matches(decimalPattern)); err != nil {
			panic(err)
		}
	})
}

func matches(re *regexp.Regexp) validator.Func {
	return func(fl validator.FieldLevel) bool {
		return re.MatchString(fl.Field().String())
	}
}

func paramName(field reflect.StructField) string {
	for _, key := range []string{"form", "uri", "json"} {
		name, _, _ := strings.Cut(field.Tag.Get(key), ",")
		if name != "" && name != "-" {
			return name
		}
	}
	return field.Name
}

// cannonQuery is the raw list query. Empty values count as absent.
type cannonQuery struct {
	Secteur        string `form:"secteur" binding:"omitempty,unsigned"`
	Type           string `form:"type" binding:"omitempty,oneof=lance autonome tour"`
	MinConsumption string `form:"minConsumption" binding:"omitempty,decimal"`
	MaxConsumption string `form:"maxConsumption" binding:"omitempty,decimal"`
}

var cannonQueryKeys = []string{"secteur", "type", "minConsumption", "maxConsumption"}

// repeatedParams reports every filter key given more than once. Binding
// would keep only the first value.
func repeatedParams(values url.Values) []issue {
	var issues []issue
	for _, key := range cannonQueryKeys {
		if len(values[key]) > 1 {
			issues = append(issues, issue{Path: []string{key}, Message: "Expected string, received array"})
		}
	}
	return issues
}

type idParam struct {
	ID string `uri:"id" binding:"required,unsigned"`
}

// issue describes one rejected parameter.
type issue struct {
	Path    []string `json:"path"`
	Message string   `json:"message"`
}

func (q cannonQuery) filter() (cannon.Filter, []issue) {
	var f cannon.Filter
	var issues []issue

	if q.Secteur != "" {
		n, err := strconv.Atoi(q.Secteur)
		if err != nil {
			issues = append(issues, issue{Path: []string{"secteur"}, Message: "Sector is out of range"})
		} else {
			f.Sector = &n
		}
	}
	if q.Type != "" {
		t, _ := cannon.ParseType(q.Type)
		f.Type = &t
	}
	if q.MinConsumption != "" {
		v, err := strconv.ParseFloat(q.MinConsumption, 64)
		if err != nil {
			issues = append(issues, issue{Path: []string{"minConsumption"}, Message: "numeric"})
		} else {
			f.MinConsumption = &v
		}
	}
	if q.MaxConsumption != "" {
		v, err := strconv.ParseFloat(q.MaxConsumption, 64)
		if err != nil {
			issues = append(issues, issue{Path: []string{"maxConsumption"}, Message: "numeric"})
		} else {
			f.MaxConsumption = &v
		}
	}
	return f, issues
}

// bindingIssues flattens a gin binding error into per-field issues.
func bindingIssues(err error) []issue {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []issue{{Path: []string{}, Message: err.Error()}}
	}

	issues := make([]issue, 0, len(verrs))
	for _, fe := range verrs {
		issues = append(issues, issue{Path: []string{fe.Field()}, Message: issueMessage(fe)})
	}
	return issues
}

func issueMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "unsigned":
		if fe.Field() == "id" {
			return "ID must be numeric"
		}
		return "Expected a non-negative integer"
	case "decimal":
		return "numeric"
	case "oneof":
		return "Invalid cannon type"
	case "required":
		return "Required"
	}
	return "Invalid value"
}
