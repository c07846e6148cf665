package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrUnknownEnvironment окружение платформы не найдено
var ErrUnknownEnvironment = errors.New("unknown environment")

// Environment адреса одного окружения платформы
type Environment struct {
	Name    string
	APIURL  string
	AuthURL string
}

var environments = map[string]Environment{
	"sandbox":    {Name: "sandbox", APIURL: "https://sandboxapi.ordercloud.io", AuthURL: "https://sandboxapi.ordercloud.io"},
	"staging":    {Name: "staging", APIURL: "https://stagingapi.ordercloud.io", AuthURL: "https://stagingapi.ordercloud.io"},
	"production": {Name: "production", APIURL: "https://api.ordercloud.io", AuthURL: "https://api.ordercloud.io"},
}

// EnvironmentNames имена известных окружений по алфавиту
func EnvironmentNames() []string {
	names := make([]string, 0, len(environments))
	for name := range environments {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LookupEnvironment находит окружение по имени без учета регистра
func LookupEnvironment(name string) (Environment, error) {
	env, ok := environments[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Environment{}, fmt.Errorf("%w %q: expected one of %s", ErrUnknownEnvironment, name, strings.Join(EnvironmentNames(), ", "))
	}
	return env, nil
}

// ResolveEnvironment окружение из настроек; remote.baseURL и remote.authURL
// переопределяют адреса известного окружения
func (c *Config) ResolveEnvironment() (Environment, error) {
	env, err := LookupEnvironment(c.Remote.Environment)
	if err != nil {
		return Environment{}, err
	}
	if c.Remote.BaseURL != "" {
		env.APIURL = strings.TrimRight(c.Remote.BaseURL, "/")
		env.AuthURL = env.APIURL
	}
	if c.Remote.AuthURL != "" {
		env.AuthURL = strings.TrimRight(c.Remote.AuthURL, "/")
	}
	return env, nil
}
