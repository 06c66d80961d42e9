package generator

import (
	"text/template"

	"github.com/goplus/llrecipe/recipe"
)

type cmakeDep struct {
	Name        string // as given by the package
	Root        string
	IncludeDirs []string
	LibDirs     []string
	BinDirs     []string
	Libs        []string
	Defines     []string
	LinkFlags   []string
}

func cmakeDeps(deps []recipe.Dependency) []cmakeDep {
	out := make([]cmakeDep, 0, len(deps))
	for _, d := range deps {
		ci := d.Info
		if ci.RootPath == "" {
			ci.RootPath = d.Folder
		}
		name := d.Ref.Name
		if n := ci.Names["cmake_find_package"]; n != "" {
			name = n
		}
		out = append(out, cmakeDep{
			Name:        name,
			Root:        ci.RootPath,
			IncludeDirs: ci.AbsIncludeDirs(),
			LibDirs:     ci.AbsLibDirs(),
			BinDirs:     ci.AbsBinDirs(),
			Libs:        ci.Libs,
			Defines:     ci.Defines,
			LinkFlags:   ci.LinkFlags,
		})
	}
	return out
}

var buildInfoTmpl = template.Must(template.New("conanbuildinfo.cmake").Funcs(funcs).Parse(`# Generated by llrecipe. Do not edit.
{{range .}}{{$v := upper .Name}}
set(CONAN_{{$v}}_ROOT "{{fwd .Root}}")
set(CONAN_INCLUDE_DIRS_{{$v}} {{paths .IncludeDirs}})
set(CONAN_LIB_DIRS_{{$v}} {{paths .LibDirs}})
set(CONAN_BIN_DIRS_{{$v}} {{paths .BinDirs}})
set(CONAN_LIBS_{{$v}} {{words .Libs}})
set(CONAN_DEFINES_{{$v}} {{range .Defines}}-D{{.}} {{end}})
set(CONAN_LINK_FLAGS_{{$v}} {{words .LinkFlags}})
{{end}}
set(CONAN_DEPENDENCIES{{range .}} {{.Name}}{{end}})
{{- range .}}{{$v := upper .Name}}
set(CONAN_INCLUDE_DIRS ${CONAN_INCLUDE_DIRS} ${CONAN_INCLUDE_DIRS_{{$v}}})
set(CONAN_LIB_DIRS ${CONAN_LIB_DIRS} ${CONAN_LIB_DIRS_{{$v}}})
set(CONAN_BIN_DIRS ${CONAN_BIN_DIRS} ${CONAN_BIN_DIRS_{{$v}}})
set(CONAN_LIBS ${CONAN_LIBS} ${CONAN_LIBS_{{$v}}})
set(CONAN_DEFINES ${CONAN_DEFINES} ${CONAN_DEFINES_{{$v}}})
{{- end}}

macro(conan_basic_setup)
    include_directories(${CONAN_INCLUDE_DIRS})
    link_directories(${CONAN_LIB_DIRS})
    add_definitions(${CONAN_DEFINES})
endmacro()
`))

func cmakeBuildInfo(deps []recipe.Dependency) ([]File, error) {
	content, err := render(buildInfoTmpl, cmakeDeps(deps))
	if err != nil {
		return nil, err
	}
	return []File{{Name: "conanbuildinfo.cmake", Content: content}}, nil
}

var pathsTmpl = template.Must(template.New("conan_paths.cmake").Funcs(funcs).Parse(`# Generated by llrecipe. Do not edit.
{{range .}}set(CONAN_{{upper .Name}}_ROOT "{{fwd .Root}}")
{{end}}
set(CMAKE_MODULE_PATH "${CMAKE_CURRENT_LIST_DIR}"{{range .}} ${CONAN_{{upper .Name}}_ROOT}{{end}} ${CMAKE_MODULE_PATH})
set(CMAKE_PREFIX_PATH "${CMAKE_CURRENT_LIST_DIR}"{{range .}} ${CONAN_{{upper .Name}}_ROOT}{{end}} ${CMAKE_PREFIX_PATH})
`))

func cmakePaths(deps []recipe.Dependency) ([]File, error) {
	content, err := render(pathsTmpl, cmakeDeps(deps))
	if err != nil {
		return nil, err
	}
	return []File{{Name: "conan_paths.cmake", Content: content}}, nil
}

var findTmpl = template.Must(template.New("find").Funcs(funcs).Parse(`# Generated by llrecipe. Do not edit.
set({{.Name}}_FOUND TRUE)
set({{.Name}}_INCLUDE_DIRS {{paths .IncludeDirs}})
set({{.Name}}_INCLUDES ${ {{- .Name}}_INCLUDE_DIRS})
set({{.Name}}_LIB_DIRS {{paths .LibDirs}})
set({{.Name}}_DEFINITIONS {{range .Defines}}-D{{.}} {{end}})
set({{.Name}}_LIBRARIES "")

foreach(_lib {{words .Libs}})
    find_library(_found_${_lib} NAMES ${_lib} PATHS ${ {{- .Name}}_LIB_DIRS} NO_DEFAULT_PATH)
    if(_found_${_lib})
        list(APPEND {{.Name}}_LIBRARIES ${_found_${_lib}})
    else()
        list(APPEND {{.Name}}_LIBRARIES ${_lib})
    endif()
    unset(_found_${_lib} CACHE)
endforeach()
set({{.Name}}_LIBS ${ {{- .Name}}_LIBRARIES})

if(NOT TARGET {{.Name}}::{{.Name}})
    add_library({{.Name}}::{{.Name}} INTERFACE IMPORTED)
    set_target_properties({{.Name}}::{{.Name}} PROPERTIES
        INTERFACE_INCLUDE_DIRECTORIES "${ {{- .Name}}_INCLUDE_DIRS}"
        INTERFACE_LINK_LIBRARIES "${ {{- .Name}}_LIBRARIES};{{range $i, $f := .LinkFlags}}{{if $i}};{{end}}{{$f}}{{end}}"
        INTERFACE_COMPILE_DEFINITIONS "{{range $i, $d := .Defines}}{{if $i}};{{end}}{{$d}}{{end}}")
endif()
`))

func cmakeFindPackage(deps []recipe.Dependency) ([]File, error) {
	var files []File
	for _, d := range cmakeDeps(deps) {
		content, err := render(findTmpl, d)
		if err != nil {
			return nil, err
		}
		files = append(files, File{Name: "Find" + d.Name + ".cmake", Content: content})
	}
	return files, nil
}
