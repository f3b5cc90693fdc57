package chatctx

// BuildHeaders clones the schema's required/optional header templates and
// substitutes the API-key placeholder using the schema's auth descriptor,
// per spec §4.2. Content-Type is always set to application/json unless
// the schema's own templates already declare it.
func (c *Context) BuildHeaders() map[string]string {
	headers := make(map[string]string)

	placeholder := ""
	var prefix string
	var keyName string
	if c.doc.Authentication != nil {
		placeholder = c.doc.Authentication.KeyPlaceholder
		prefix = c.doc.Authentication.KeyPrefix
		keyName = c.doc.Authentication.KeyName
	}

	apply := func(template map[string]string) {
		for name, value := range template {
			if placeholder != "" && value == placeholder {
				headers[name] = prefix + c.apiKey
			} else {
				headers[name] = value
			}
		}
	}

	apply(c.doc.Headers.Required)
	apply(c.doc.Headers.Optional)

	if keyName != "" {
		if _, present := headers[keyName]; !present {
			headers[keyName] = prefix + c.apiKey
		}
	}

	if _, present := headers["Content-Type"]; !present {
		headers["Content-Type"] = "application/json"
	}

	return headers
}
