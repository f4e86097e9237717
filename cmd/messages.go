package main

import (
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/salaheddineelazouti/Projet-innovation/internal/model"
)

var messageExts = map[string]bool{".yaml": true, ".yml": true, ".json": true}

// loadMessages reads one message or a list of messages from a YAML or JSON
// file. Relative attachment paths are resolved against the file's
// directory; a missing id defaults to the file name.
func loadMessages(path string) ([]model.Message, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "read message file %s", path)
	}

	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, eris.Wrapf(err, "parse message file %s", path)
	}
	if len(node.Content) == 0 {
		return nil, eris.Errorf("message file %s is empty", path)
	}

	var msgs []model.Message
	switch root := node.Content[0]; root.Kind {
	case yaml.SequenceNode:
		if err := root.Decode(&msgs); err != nil {
			return nil, eris.Wrapf(err, "decode messages in %s", path)
		}
	case yaml.MappingNode:
		var m model.Message
		if err := root.Decode(&m); err != nil {
			return nil, eris.Wrapf(err, "decode message in %s", path)
		}
		msgs = []model.Message{m}
	default:
		return nil, eris.Errorf("message file %s must hold a message or a list of messages", path)
	}

	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	dir := filepath.Dir(path)
	for i := range msgs {
		m := &msgs[i]
		if m.ID == "" {
			m.ID = base
			if len(msgs) > 1 {
				m.ID = base + "-" + strconv.Itoa(i+1)
			}
		}
		if m.Source == "" {
			m.Source = model.SourceEmail
		}
		for j := range m.Attachments {
			a := &m.Attachments[j]
			if a.Path != "" && !filepath.IsAbs(a.Path) {
				a.Path = filepath.Join(dir, a.Path)
			}
			if a.Filename == "" {
				a.Filename = filepath.Base(a.Path)
			}
		}
	}
	return msgs, nil
}

// loadMessageDir reads every message file in dir, in name order.
func loadMessageDir(dir string) ([]model.Message, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, eris.Wrapf(err, "read message dir %s", dir)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && messageExts[strings.ToLower(filepath.Ext(e.Name()))] {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	var msgs []model.Message
	for _, name := range names {
		m, err := loadMessages(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, m...)
	}
	return msgs, nil
}
