// Package xmlinfo lee datos del XML que devuelven los bridges SAT/ECF.
// La lectura es defensiva: un XML ilegible no es un error de emisión.
package xmlinfo

import (
	"encoding/base64"
	"strings"

	"github.com/beevik/etree"
)

// Info datos extraídos del XML de un cupón o nota.
type Info struct {
	AccessKey string // chave de acesso (44 dígitos), sin el prefijo CFe/NFe
	Protocol  string // nProt del protocolo de autorización, si viene
}

// Extract busca infCFe/@Id o infNFe/@Id en cualquier nivel del documento.
// El SAT suele devolver el CF-e en base64; se decodifica si el contenido no empieza con '<'.
// ok=false si no hay XML legible o no contiene clave.
func Extract(raw string) (Info, bool) {
	content := strings.TrimSpace(raw)
	if content == "" {
		return Info{}, false
	}
	if !strings.HasPrefix(content, "<") {
		decoded, err := base64.StdEncoding.DecodeString(content)
		if err != nil {
			return Info{}, false
		}
		content = strings.TrimSpace(string(decoded))
	}

	doc := etree.NewDocument()
	if err := doc.ReadFromString(content); err != nil {
		return Info{}, false
	}
	if doc.Root() == nil {
		return Info{}, false
	}

	var info Info
	for _, path := range []string{"//infCFe", "//infNFe"} {
		if el := doc.FindElement(path); el != nil {
			if id := el.SelectAttrValue("Id", ""); id != "" {
				info.AccessKey = stripPrefix(id)
				break
			}
		}
	}
	if el := doc.FindElement("//infProt/nProt"); el != nil {
		info.Protocol = strings.TrimSpace(el.Text())
	}
	return info, info.AccessKey != ""
}

func stripPrefix(id string) string {
	for _, p := range []string{"CFe", "NFe"} {
		if strings.HasPrefix(id, p) {
			return id[len(p):]
		}
	}
	return id
}
