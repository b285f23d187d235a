package help

import (
	"github.com/Borislavv/go-ash-segments/model"
	"github.com/Borislavv/go-ash-segments/schema"
)

// Users is the referenced side of the partial reference fixtures.
func Users() schema.Schema {
	return schema.Schema{
		Name: "User",
		Fields: []schema.Field{
			schema.Int("id"),
			schema.String("name"),
			schema.String("password").Opt(),
		},
		LookupField: "id",
		Visibility:  schema.AllExcept("password"),
	}
}

// Tokens references Users through its owner field.
func Tokens(usersSegment string) schema.Schema {
	return schema.Schema{
		Name: "Token",
		Fields: []schema.Field{
			schema.Int("id"),
			schema.Ref("owner", "User"),
			schema.String("value").Opt(),
		},
		LookupField: "id",
		Partials:    map[string]string{"owner": usersSegment},
	}
}

func User(id int, name string) model.Fields {
	return model.Fields{"id": id, "name": name}
}

func Token(id, owner int) model.Fields {
	return model.Fields{"id": id, "owner": owner}
}
