package layoutModel

import "encoding/json"

type TokenType int

const (
	Caption TokenType = iota + 1
	Footnote
	Formula
	ListItem
	PageFooter
	PageHeader
	Picture
	SectionHeader
	Table
	Text
	Title
)

var labelNames = map[TokenType]string{
	Caption:       "Caption",
	Footnote:      "Footnote",
	Formula:       "Formula",
	ListItem:      "List_Item",
	PageFooter:    "Page_Footer",
	PageHeader:    "Page_Header",
	Picture:       "Picture",
	SectionHeader: "Section_Header",
	Table:         "Table",
	Text:          "Text",
	Title:         "Title",
}

// Labels lists the label set in category id order.
func Labels() []TokenType {
	return []TokenType{Caption, Footnote, Formula, ListItem, PageFooter, PageHeader, Picture, SectionHeader, Table, Text, Title}
}

// TypeByID maps a model category id to its label.
func TypeByID(id int) (TokenType, bool) {
	t := TokenType(id)
	return t, t.Valid()
}

func (t TokenType) Valid() bool {
	_, ok := labelNames[t]
	return ok
}

func (t TokenType) String() string {
	if name, ok := labelNames[t]; ok {
		return name
	}
	return "Unknown"
}

func (t TokenType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *TokenType) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		var id int
		if err := json.Unmarshal(data, &id); err != nil {
			return err
		}
		*t = TokenType(id)
		return nil
	}
	for k, v := range labelNames {
		if v == name {
			*t = k
			return nil
		}
	}
	*t = 0
	return nil
}
