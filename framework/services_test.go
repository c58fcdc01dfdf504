package framework

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestServiceNamesHas(t *testing.T) {
	s := ServiceNames{"puppet", "puppetdb", "postgres"}
	assert.True(t, s.Has("puppetdb"))
	assert.False(t, s.Has("agent"))
	assert.False(t, ServiceNames(nil).Has("puppet"))
}

func TestServiceNamesMissing(t *testing.T) {
	s := ServiceNames{"puppet", "postgres"}
	assert.Equal(t, []string{"puppetdb"}, s.Missing("puppet", "puppetdb", "postgres"))
	assert.Nil(t, s.Missing("postgres"))
}

func TestServiceNamesSorted(t *testing.T) {
	s := ServiceNames{"puppetdb", "postgres", "puppet"}
	assert.Equal(t, ServiceNames{"postgres", "puppet", "puppetdb"}, s.Sorted())
	assert.Equal(t, ServiceNames{"puppetdb", "postgres", "puppet"}, s)
	assert.Equal(t, "puppetdb, postgres, puppet", s.String())
}
