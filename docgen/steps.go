package docgen

// Step is one progress update from an agent in the pipeline
type Step struct {
	Agent   string `json:"agent"`
	Message string `json:"message"`
}

var pipeline = []Step{
	{Agent: "Supervisor", Message: "Workflow started. Validating repository URL..."},
	{Agent: "Repo Mapper", Message: "Cloning repository..."},
	{Agent: "Repo Mapper", Message: "Generating file tree and ignoring .gitignore files."},
	{Agent: "Repo Mapper", Message: "Summarizing README.md to understand project goals."},
	{Agent: "Supervisor", Message: "High-level planning complete. Instructing Code Analyzer."},
	{Agent: "Code Analyzer", Message: "Parsing entry-point files (e.g., main.py, app.js)..."},
	{Agent: "Code Analyzer", Message: "Constructing Code Context Graph (CCG) to map relationships."},
	{Agent: "Code Analyzer", Message: "Iteratively analyzing utility modules..."},
	{Agent: "DocGenie", Message: "Synthesizing final documentation from structured data."},
	{Agent: "DocGenie", Message: "Generating Project Overview and Installation sections."},
	{Agent: "DocGenie", Message: "Generating API Reference from code analysis."},
	{Agent: "Supervisor", Message: "Aggregating results. Finalizing documentation."},
}

// Steps returns the pipeline steps in emission order
func Steps() []Step {
	out := make([]Step, len(pipeline))
	copy(out, pipeline)
	return out
}

// Markdown is the document every successful run produces
const Markdown = "# Codebase Genius Documentation\n" +
	"\n" +
	"## Project Overview\n" +
	"\n" +
	"This is a sample documentation generated for the repository. Codebase Genius is an AI-powered, multi-agent system that automatically generates high-quality documentation for any software repository.\n" +
	"\n" +
	"## Installation\n" +
	"\n" +
	"To get started with this project, follow these steps:\n" +
	"\n" +
	"1.  Clone the repository: `git clone https://github.com/user/repository.git`\n" +
	"2.  Navigate to the project directory: `cd repository`\n" +
	"3.  Install dependencies: `npm install`\n" +
	"\n" +
	"## Usage\n" +
	"\n" +
	"To run the application, use the following command:\n" +
	"\n" +
	"```bash\n" +
	"npm start\n" +
	"```\n" +
	"\n" +
	"## Key Modules\n" +
	"\n" +
	"### main.jac\n" +
	"\n" +
	"This is the primary entry point for the application. It orchestrates the main workflow.\n" +
	"\n" +
	"- **Function:** `main()` - Initializes and starts the server.\n" +
	"- **Dependencies:** `utils.jac`, `api.jac`\n" +
	"\n" +
	"### utils.jac\n" +
	"\n" +
	"A collection of utility functions used across the application.\n" +
	"\n" +
	"- **Function:** `formatData(data)` - Formats the incoming data.\n" +
	"\n" +
	"## API Reference\n" +
	"\n" +
	"The following endpoints are available:\n" +
	"\n" +
	"- `POST /api/generate` - Generates documentation for a given repository URL."
