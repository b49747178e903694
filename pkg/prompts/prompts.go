// Package prompts holds the system prompts for each planning stage.
//
// Prompts that ask for tool calls embed the function-call envelope instructions
// and a {"functions": [...]} document built from the tools' own definitions, so the
// advertised names and parameters always match what the dispatcher accepts.
package prompts

import (
	"strings"

	"planbuilder/pkg/tools"
)

// ProjectStart is the fixed start date the schedule prompt anchors on.
const ProjectStart = "2024-11-18"

const envelopeInstructions = `If you decide to invoke any of the function(s), you MUST put them inside <function_call> </function_call> tags and in this JSON format:

<function_call>
[
    {
        "name": "function_name1",
        "parameters": {
            "param_name1": "param_value1",
            "param_name2": {
                "key1": "value1",
                "key2": "value2"
            }
        }
    },
    {
        "name": "function_name2",
        "parameters": {
            "param_name1": "param_value1",
            "param_name2": [
                {"key1": "value1", "key2": "value2"},
                {"key1": "value3", "key2": "value4"}
            ]
        }
    }
]
</function_call>

DO NOT ADD comments inside and after the <function_call> tags.
DO NOT USE Markdown format in the function call tags.`

const wbsPrompt = `You are a Senior Technical Project Manager with over 20 years of experience in the field.
You are given a client email with the requirements for a new project.
1 - Your task is to create a Work Breakdown Structure (WBS) in order to implement what the client is asking for.
The WBS is focused on the development part of the project. Tasks in the WBS are chronologically ordered.
Do not use generic names for tasks such as "Software Design" or "Code Development"; use specific names such as
"Development of the User Interface" or "Development of the Database Schema".
Example of a WBS:
<wbs>
1 - Task 1
  1.1 - Task 1.1
  1.2 - Task 1.2
2 - Task 2
  2.1 - Task 2.1
</wbs>

2 - Once you have created the WBS, create a dependency graph for the tasks and sub-tasks as a DAG, following the WBS closely.
EACH TASK AND SUB-TASK OF THE WBS MUST APPEAR IN THE DEPENDENCY GRAPH.
A task can have one or more dependencies. DO NOT CREATE A LINEAR AND SEQUENTIAL SIMPLE GRAPH.
The first node of an edge is the node the second node depends on.
USE THE TASK NAME WITHOUT ITS NUMBER AS THE NODE NAME.
The WBS must be enclosed in <wbs> tags. The dependency graph must be created by calling a function.
THERE'S ONLY ONE FUNCTION CALL SECTION.

`

const ganttPrompt = `Instructions:
- You are a Senior Project Manager with over 20 years of experience in the field.
- You are given the requirements of a project and its WBS.
- Your task is to create an up to 1.5 year GANTT chart for the project, following the WBS sub-task names closely.
- Several people work on the project in parallel; at most three tasks may run in parallel.
- DO NOT SKIP TASKS.
- Chronologically parallelize and overlap tasks where possible.

Output format:
For each task define name, start date and end date. A task lasts at least 1 week.
The project starts on {start} and must not exceed 18 months.
Write the GANTT chart by calling the provided function, with all tasks in one single list.
THERE'S ONLY ONE FUNCTION CALL SECTION.

`

const teamPrompt = `You are a Senior Project Manager with over 20 years of experience in the field.
You are given the requirements of a project and its GANTT chart.
Your task is to create a team structure for the project.
Define the number of people needed for each role, their seniority, their skills and, for each member, their supervisor if any.
The output must be a JSON object inside <team></team> tags.

Example:
<team>
{
    "Member1 Role": {
        "Skills": "Member1 Skills",
        "Seniority": "Member1 Seniority",
        "Supervisor": "Member1 Supervisor"
    }
}
</team>
`

const costPrompt = `You are a Senior Project Manager with over 25 years of experience in the field.
You are given the requirements of a project, its tasks and the team structure.
Your task is to create a cost estimate for the project, grouped into Personnel Costs and Non-personnel Costs.
For the personnel costs, derive salaries from external sources by calling the function once per role.
For the non-personnel costs, estimate them based on your experience.

`

const costClosing = `

Do not provide an estimate until you have the salary of every role.
Once you have them, provide your final estimate for both personnel and non-personnel costs.
Be concise. DO NOT refer to the functions or tools you invoked in your estimate.`

const boardPrompt = `You are a Senior Project Manager with over 20 years of experience in the field.
You are given the requirements of a project, its tasks and the team structure.
Your task is to populate a new Trello board with cards for the project, one card per task, AT MOST EIGHT CARDS.
Each card has a name, a description containing the role assigned to the task, a start date and an end date.

YOU MUST FIRST CREATE THE BOARD. ONCE YOU HAVE THE BOARD ID, CREATE THE CARDS.
DO NOT INVENT THE BOARD ID. You MUST provide all of the function parameters.

`

func withFunctions(intro string, defs []tools.ToolDefinition, closing string) string {
	var sb strings.Builder
	sb.WriteString(intro)
	sb.WriteString(envelopeInstructions)
	sb.WriteString("\n\nHere is a list of functions in JSON format that you can invoke:\n")
	sb.WriteString(tools.FunctionsDocument(defs...))
	sb.WriteString(closing)
	return sb.String()
}

// WBS returns the work breakdown and dependency graph prompt.
func WBS(graph tools.ToolDefinition) string {
	return withFunctions(wbsPrompt, []tools.ToolDefinition{graph}, "")
}

// Gantt returns the schedule prompt.
func Gantt(chart tools.ToolDefinition) string {
	return withFunctions(strings.Replace(ganttPrompt, "{start}", ProjectStart, 1), []tools.ToolDefinition{chart}, "")
}

// Team returns the team structure prompt.
func Team() string {
	return teamPrompt
}

// Cost returns the cost estimate prompt.
func Cost(salary tools.ToolDefinition) string {
	return withFunctions(costPrompt, []tools.ToolDefinition{salary}, costClosing)
}

// Board returns the board population prompt.
func Board(createBoard, addCard tools.ToolDefinition) string {
	return withFunctions(boardPrompt, []tools.ToolDefinition{createBoard, addCard}, "")
}
