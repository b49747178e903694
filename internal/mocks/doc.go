// Package mocks provides shared mock implementations for testing.
//
// # Usage
//
//	import "planbuilder/internal/mocks"
//
//	func TestSomething(t *testing.T) {
//	    mockLLM := mocks.NewMockLLMClient()
//	    mockLLM.RespondWithSequence([]string{
//	        mocks.Envelope("Here is the board.", mocks.EnvelopeCall{Name: "create_board_on_trello"}),
//	        "done",
//	    })
//	    // Use mockLLM in test...
//	}
//
// # Available Mocks
//
//   - MockLLMClient: Mock for the pkg/llm.LLMClient interface
package mocks
