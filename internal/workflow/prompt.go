// Copyright (c) 2025 RepoLaunch Contributors
//
// This software is released under the MIT License.
// See LICENSE file in the repository for details.

package workflow

// Prompt templates for the workflow phases. These are data: the phase
// functions fill the slots with fmt.Sprintf.

// reactPrompt frames the Thought/Action/Observation loop for both agent
// phases. Slots: action formats, project structure, related docs.
const reactPrompt = `
You run in a loop of Thought, Action, Observation.
At the end of the loop you should use Action to stop the loop.

Use Thought to describe your thoughts about the question you have been asked.
Use Action to run one of the actions available to you.
Observation will be the result of running those actions.
> Important Note: Each step, reply with only **one** (Thought, Action) pair.
> Important Note: Do not reply **Observation**, it will be provided by the system.

Your available actions are:
%s

Project Structure: the structure of the project, including files and directories.
Related Files: the content of related files of the project that may help you understand the project.
Thought: you should always think about what to do
Action: one of the available actions, wrapped in its tag
Observation: the result of the action
... (this Thought/Action/Observation can repeat N times) ...

Begin!
Project Structure: %s
Related Files: %s
`

// setupSystemPrompt frames the setup phase. Slots: base image, language
// instructions.
const setupSystemPrompt = `You are a developer. Your task is to install dependencies and set up a environment that is able to run the tests of the project.

- You start with an initial Docker container based on %s.
- You interact with a Bash session inside this container.
- Project files are located in /testbed within the container, and your current working directory of bash is already set to /testbed.
- No need to clone the project again.

The final objective is to successfully run the tests of the project.

%s
`

// setupActionsLinux documents the setup vocabulary; also used verbatim as
// the corrective observation for malformed responses.
const setupActionsLinux = `
Command: run a command in the bash, reply with following format, your command should not require sudo or interactive input:
    <command>bash command</command>
    e.g. install build-essential: <command>apt-get install -y build-essential</command>
    e.g. view file content: <command>cat README.md</command>
Search: search the web if you need some information, generate query and reply with following format:
    <search>the search query</search>
    e.g. <search>how to fix 'No module named setuptools'</search>
    e.g. <search>how to install python3 on ubuntu</search>
Stop: stop the setup loop once you think the setup is complete, reply with following format:
    <stop></stop>
`

const setupActionsWindows = `
Command: run a command in the windows powershell, reply with following format, your command should not require admin privilege or interactive input:
    <command>powershell command</command>
    e.g. install a package: <command>choco install -y git</command>
    e.g. view file content: <command>cat README.md</command>
Search: search the web if you need some information, generate query and reply with following format:
    <search>the search query</search>
    e.g. <search>how to fix 'No module named setuptools'</search>
Stop: stop the setup loop once you think the setup is complete, reply with following format:
    <stop></stop>
`

// verifySystemPrompt frames the verify phase. Slots: base image, setup
// commands run so far.
const verifySystemPrompt = `You are a developer. Your task is to verify whether the environment for the given project is set up correctly. Your colleague has set up a Docker environment for the project. You need to verify if it can successfully run the tests of the project.
- You interact with a Bash session inside this container.
- The container is based on %s.
- The setup commands that your colleague has run are %s
- Project files are located in /testbed within the container, and your current working directory of bash is already set to /testbed.
- Use the same test framework as your colleague, because that aligns with the setup stage.
- Only test commands, skip linting/packaging/publishing commands.
- Do not change the state of the environment, your task is to verify not to fix it. If you see issues, report it not fix it.
- You can tolerate a few test cases failures - as long as most tests pass, it's good enough.

## Important Note:

Your test command must output detailed pass/fail status for each test item. This is mandatory. For example, with pytest, use the -rA option.
Since we need to parse the test output to extract a test item -> status mapping, **this requirement is mandatory**.
If you observed that your test command does not produce such detailed output, you must adjust it accordingly.
If test results are written to a file not printed to stdout, then find the file and output its content to console (with cat command etc.) to verify.

In summary, your goal is:
1. Write the test commands that could output detailed pass/fail status for each test item, you can iterate until it does.
2. Run the test command to verify if the environment is set up correctly. If not, report any observed issues. If you think the setup is correct, report none issue by outputting <issue>None</issue>.
`

// verifyActions documents the verify vocabulary; also the corrective
// observation for malformed responses.
const verifyActions = `
Command: run a command in the bash, reply with following format, your command should not require sudo or interactive input:
    <command>...</command>
    e.g. run pytest with detailed output turned on: <command>pytest -rA</command>
Issue: stop the verify loop once verification is done, and reply with the issue of the setup:
    <issue>...</issue>
    e.g. <issue>some dependency is missing, run 'pytest' failed</issue>
    e.g. <issue>None</issue> if you think the setup is correct (remember to tolerate a few test case failures as long as most tests pass)
`

// formatCorrection is the observation returned for a response with no
// recognized tag. Slot: the phase's action formats.
const formatCorrection = `Please use the following format after 'Action: ' to make a valid action choice:
%s
`

// locatePrompt asks for files relevant to environment setup. Slot: the
// repository structure.
const locatePrompt = `Given this repository structure:
------ BEGIN REPOSITORY STRUCTURE ------
%s
------ END REPOSITORY STRUCTURE ------

List the most relevant files for setting up a development environment, including:
0. CI/CD configuration files
1. README files
2. Documentation
3. Installation guides
4. Development setup guides

Only list files that are critical for understanding project dependencies and setup requirements.
Format each file with its relative path (relative to project root) to be wrapped with tag <file> </file>, one per line.`

// relevancePrompt asks whether one file helps with environment setup.
// Slot: the file block.
const relevancePrompt = `Given a file of the repository, determine if it is relevant for setting up a development environment for the repository or providing information about how to set up dev env (how to setup, install, test, etc.).

### File:
%s

### Reply with the following format:

<rel>Yes</rel>

or

<rel>No</rel>

Choose either Yes or No, Yes means this file IS relevant for setting up a dev env for the repository.`

// selectImagePrompt asks for a base image choice. Slots: docs, hints,
// extra considerations, candidate list.
const selectImagePrompt = `Based on related files:
%s
%s

Please recommend a suitable base Docker image. Consider:
1. The programming language and version requirements
2. Common system dependencies
3. Use official images when possible
%s

Select a base image from the following candidate list:
%s
Wrap the image name in a block like <image>ubuntu:20.04</image> to indicate your choice.
`

func setupActions(platform string) string {
	if platform == "windows" {
		return setupActionsWindows
	}
	return setupActionsLinux
}
