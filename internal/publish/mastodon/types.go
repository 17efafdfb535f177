package mastodon

import (
	gomastodon "github.com/mattn/go-mastodon"

	"github.com/lueurxax/mapcomplete-digest-bot/internal/core/domain"
)

func toDomainAccount(a *gomastodon.Account) domain.FediverseAccount {
	fields := make(map[string]string, len(a.Fields))
	for _, f := range a.Fields {
		fields[f.Name] = f.Value
	}

	return domain.FediverseAccount{Acct: a.Acct, Note: a.Note, Fields: fields}
}
