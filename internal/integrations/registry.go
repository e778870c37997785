package integrations

import (
	"fmt"
	"sort"
	"strings"
)

// Providers — реализации бэкенда, из которых конфиг выбирает одну (BACKEND_PROVIDER).
// Набор собирается один раз при старте и дальше не меняется.
type Providers struct {
	byName map[string]RecordProvider
}

func NewProviders(list ...RecordProvider) (*Providers, error) {
	p := &Providers{byName: make(map[string]RecordProvider, len(list))}
	for _, provider := range list {
		name := provider.Name()
		if _, exists := p.byName[name]; exists {
			return nil, fmt.Errorf("провайдер '%s' зарегистрирован дважды", name)
		}
		p.byName[name] = provider
	}
	return p, nil
}

func (p *Providers) Names() []string {
	names := make([]string, 0, len(p.byName))
	for name := range p.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Pick возвращает провайдера по имени; пустое имя не допускается.
func (p *Providers) Pick(name string) (RecordProvider, error) {
	provider, ok := p.byName[name]
	if !ok {
		return nil, fmt.Errorf("неизвестный провайдер '%s', доступны: %s", name, strings.Join(p.Names(), ", "))
	}
	return provider, nil
}
