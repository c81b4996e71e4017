package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

func Validate(c *Config) error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	seen := make(map[string]struct{}, len(c.Datasets))
	for _, item := range c.Datasets {
		owner, name, _ := strings.Cut(item.Name, "/")
		if len(owner) == 0 || len(name) == 0 || strings.Contains(name, "/") {
			return fmt.Errorf("invalid dataset name:%s, should be owner/dataset", item.Name)
		}
		if _, ok := seen[item.Name]; ok {
			return fmt.Errorf("duplicate dataset:%s", item.Name)
		}
		seen[item.Name] = struct{}{}
	}
	if c.Cache.BodyCacheSize > 0 && c.Cache.BodyKeySizeLimit > c.Cache.BodyCacheSize {
		return fmt.Errorf("body key size limit:%d exceed body cache size:%d", c.Cache.BodyKeySizeLimit, c.Cache.BodyCacheSize)
	}
	return nil
}
