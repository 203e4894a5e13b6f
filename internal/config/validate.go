package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/gridflow/gridflow/internal/graph"
	gferrors "github.com/gridflow/gridflow/pkg/errors"
)

// ValidateDocument performs structural and cross-field validation on a whole
// graph document.
func ValidateDocument(doc *Document) error {
	if doc == nil {
		return gferrors.NewValidationError("document", "document is nil", nil)
	}

	if err := validatorInstance().Struct(doc); err != nil {
		return convertValidationError(err)
	}

	nodeIndex := make(map[string]int, len(doc.Nodes))
	for i, node := range doc.Nodes {
		if _, exists := nodeIndex[node.ID]; exists {
			return gferrors.NewValidationError(fieldForNode(i, "id"), fmt.Sprintf("duplicate node id %q", node.ID), nil)
		}
		nodeIndex[node.ID] = i
	}

	for i, node := range doc.Nodes {
		if node.Parent == "" {
			continue
		}
		parentIdx, ok := nodeIndex[node.Parent]
		if !ok {
			return gferrors.NewValidationError(fieldForNode(i, "parent"), fmt.Sprintf("references unknown node %q", node.Parent), nil)
		}
		if doc.Nodes[parentIdx].Kind != graph.KindGroup {
			return gferrors.NewValidationError(fieldForNode(i, "parent"), fmt.Sprintf("parent %q is not a group", node.Parent), nil)
		}
		if node.ID == node.Parent {
			return gferrors.NewValidationError(fieldForNode(i, "parent"), "node cannot contain itself", nil)
		}
	}

	edgeIDs := make(map[string]struct{}, len(doc.Edges))
	for i, edge := range doc.Edges {
		if _, exists := edgeIDs[edge.ID]; exists {
			return gferrors.NewValidationError(fieldForEdge(i, "id"), fmt.Sprintf("duplicate edge id %q", edge.ID), nil)
		}
		edgeIDs[edge.ID] = struct{}{}

		if _, ok := nodeIndex[edge.Source]; !ok {
			return gferrors.NewValidationError(fieldForEdge(i, "source"), fmt.Sprintf("references unknown node %q", edge.Source), nil)
		}
		if _, ok := nodeIndex[edge.Target]; !ok {
			return gferrors.NewValidationError(fieldForEdge(i, "target"), fmt.Sprintf("references unknown node %q", edge.Target), nil)
		}
	}

	for i, variable := range doc.Variables {
		if _, ok := variable.Values[variable.Active]; !ok {
			field := fmt.Sprintf("variables[%d].active", i)
			return gferrors.NewValidationError(field, fmt.Sprintf("active case %q is not defined", variable.Active), nil)
		}
	}

	return nil
}

func fieldForNode(index int, field string) string {
	return fmt.Sprintf("nodes[%d].%s", index, field)
}

func fieldForEdge(index int, field string) string {
	return fmt.Sprintf("edges[%d].%s", index, field)
}

func convertValidationError(err error) error {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) || len(validationErrs) == 0 {
		return gferrors.NewValidationError("document", err.Error(), err)
	}

	first := validationErrs[0]
	field := strings.TrimPrefix(first.Namespace(), "Document.")
	message := fmt.Sprintf("failed %q validation", first.Tag())
	return gferrors.NewValidationError(field, message, err)
}
