package groupchat

import (
	"fmt"
	"strings"
)

func (s *Scheduler) selectionPrompt() string {
	var participants strings.Builder
	for _, name := range s.names {
		participants.WriteString("    - " + name + "\n")
	}
	return fmt.Sprintf(`You are overseeing a group chat between several AI agents and a human user.
Determine which participant takes the next turn in a conversation based on the most recent participant. Follow these guidelines:

1. **Participants**: Choose only from these participants:
%s
2. **General Rules**:
    - **%[2]s Always Starts**: %[2]s always goes first to formulate a plan. If the only message is from the user, %[2]s goes next.
    - **Interactions between agents**: Agents may talk among themselves. If an agent requires information from another agent, that agent should go next.
        EXAMPLE:
            "*agent_name*, please provide ..." then agent_name goes next.
    - **"back to you *agent_name*"**: If an agent says "back to you", that agent goes next.
        EXAMPLE:
            "back to you *agent_name*" then output agent_name goes next.
    - **Once per turn**: Each participant can only speak once per turn.
    - **Default to %[2]s**: Always default to %[2]s. If no other participant is specified, %[2]s goes next.
    - **Use best judgment**: If the rules are unclear, use your best judgment to determine who should go next, for the natural flow of the conversation.

Provide your reasoning and then the verdict. The verdict must be exactly one of: %[3]s`,
		participants.String(), s.facilitator, strings.Join(s.names, ", "))
}

func (s *Scheduler) terminationPrompt() string {
	return fmt.Sprintf(`Determine if the conversation should end based on the most recent message only.
IMPORTANT: In the History, any leading "*AgentName*:" indicates the SPEAKER of the message, not the addressee.

You are part of a group chat with several AI agents and a user.
The agent names are:
    %s

Return "yes" when the last message:
- asks the user a question (ends with "?" or uses "you"/"User"), OR
- invites the user to respond (e.g., "let us know", "how can we assist/help", "feel free to ask",
    "what would you like", "should we", "can we", "would you like me to", "do you want me to"), OR
- addresses "we/us" as a decision/query to the user.

Return "no" when the last message:
- is a command or question to a specific agent by name, OR
- is a statement addressed to another agent.

Commands addressed to "you" or "User" => "yes".
If you are uncertain, return "yes".
Ignore any debug/metadata like "PT_CTX" or JSON blobs when deciding.

Provide your reasoning and then the verdict. The verdict must be exactly "yes" or "no".

EXAMPLES:
- "User, can you confirm the correct patient ID?" => verdict: "yes" (Asks user a direct question)
- "*ReportCreation*: Please compile the patient timeline." => verdict: "no" (Command to specific agent ReportCreation)
- "If you have any further questions, feel free to ask." => verdict: "yes" (Invites user to respond)`,
		strings.Join(s.names, ","))
}
